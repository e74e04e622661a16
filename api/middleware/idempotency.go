package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/assignmentpoint-backend/api/responses"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/assignmentpoint-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"

	stateTTL       = 24 * time.Hour
	moneyTTL       = 7 * 24 * time.Hour
	inFlightTTL    = 2 * time.Minute
	stateInFlight  = "in_flight"
	stateCompleted = "completed"
)

// ReplayStore is the Redis surface the middleware needs: claim, read, overwrite, release.
type ReplayStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// guardedRoute names one endpoint that requires an Idempotency-Key. Segments written as
// {name} match any single path segment.
type guardedRoute struct {
	method   string
	segments []string
	ttl      time.Duration
}

func guard(method, pattern string, ttl time.Duration) guardedRoute {
	return guardedRoute{method: method, segments: splitPath(pattern), ttl: ttl}
}

// guardedRoutes lists every endpoint that moves money or order state. Records for money
// movements outlive those for state changes so late client retries still replay.
var guardedRoutes = []guardedRoute{
	guard(http.MethodPost, "/api/v1/orders", moneyTTL),
	guard(http.MethodPost, "/api/v1/orders/{orderId}/status", moneyTTL),
	guard(http.MethodPost, "/api/v1/bids/{bidId}/accept", stateTTL),
	guard(http.MethodPost, "/api/v1/wallet/deposits", moneyTTL),
	guard(http.MethodPost, "/api/v1/wallet/withdrawals", moneyTTL),
	guard(http.MethodPost, "/api/v1/admin/orders/{orderId}/assign", stateTTL),
}

func (g guardedRoute) matches(method string, segments []string) bool {
	if g.method != method || len(g.segments) != len(segments) {
		return false
	}
	for i, want := range g.segments {
		if strings.HasPrefix(want, "{") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if want != segments[i] {
			return false
		}
	}
	return true
}

// guardFor returns the record TTL for a guarded endpoint.
func guardFor(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	for _, route := range guardedRoutes {
		if route.matches(method, segments) {
			return route.ttl, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

type replayRecord struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the guarded endpoints safe to retry. The key is claimed before the
// handler runs, so a duplicate that arrives mid-flight gets 409 instead of a second
// deposit or transition. Completed non-5xx responses are replayed byte for byte; 5xx
// responses release the claim. Keys are scoped to user, method and concrete path because
// group middleware runs before chi resolves the route pattern.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := guardFor(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
					WithDetails(map[string]any{"route": r.URL.Path}))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			claim, _ := json.Marshal(replayRecord{State: stateInFlight, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(ctx, w, store, key, hash, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if delErr := store.Del(ctx, key); delErr != nil {
					logError(ctx, logg, "release idempotency key", delErr)
				}
				return
			}
			final, err := json.Marshal(replayRecord{
				State:       stateCompleted,
				RequestHash: hash,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err != nil {
				logError(ctx, logg, "encode idempotency record", err)
				return
			}
			if err := store.Set(ctx, key, string(final), ttl); err != nil {
				logError(ctx, logg, "store idempotency record", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, w http.ResponseWriter, store ReplayStore, key, hash string, logg *logger.Logger) {
	stored, err := store.Get(ctx, key)
	if pkgredis.IsMiss(err) {
		// The claim expired or was released between SETNX and GET; the client may retry.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State != stateCompleted:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
