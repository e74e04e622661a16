// Package stripe is the card gateway behind wallet deposits: PaymentIntent creation and the
// webhook signing secret used to verify settlement callbacks.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
)

// Mode is the Stripe account mode a key belongs to.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

// keyPrefixes lists the secret and restricted key prefixes accepted per mode.
var keyPrefixes = map[Mode][]string{
	ModeTest: {"sk_test_", "rk_test_"},
	ModeLive: {"sk_live_", "rk_live_"},
}

var (
	errAPIKeyRequired = errors.New("stripe api key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
	errNotInitialized = errors.New("stripe client not initialized")
)

// Client is the process-wide Stripe handle.
type Client struct {
	api           *stripe.Client
	mode          Mode
	signingSecret string
}

// NewClient validates the key against the configured mode so a live key never runs in a
// test deployment, and the reverse.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode, err := parseMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}
	if err := checkKeyMode(mode, apiKey); err != nil {
		return nil, err
	}

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(max(cfg.MaxNetworkRetries, 0)),
	})
	client := &Client{
		api:           stripe.NewClient(apiKey, stripe.WithBackends(backends)),
		mode:          mode,
		signingSecret: signingSecret,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_mode":        string(mode),
			"stripe_max_retries": cfg.MaxNetworkRetries,
		}), "stripe client initialized")
	}
	return client, nil
}

func (c *Client) Mode() Mode {
	if c == nil {
		return ""
	}
	return c.mode
}

// SigningSecret is the whsec_ secret webhook payloads are verified against.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func parseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeTest, nil
	case ModeTest, ModeLive:
		return mode, nil
	default:
		return "", fmt.Errorf("stripe environment must be %q or %q, got %q", ModeTest, ModeLive, raw)
	}
}

func checkKeyMode(mode Mode, key string) error {
	for _, prefix := range keyPrefixes[mode] {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe %s mode requires a key starting with %s", mode, strings.Join(keyPrefixes[mode], " or "))
}
