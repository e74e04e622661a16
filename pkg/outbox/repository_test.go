package outbox

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateKeepsShortMessages(t *testing.T) {
	assert.Equal(t, "publish timeout", truncate("publish timeout"))
}

func TestTruncateStopsOnRuneBoundary(t *testing.T) {
	// Two ASCII bytes shift the three-byte runes so the limit lands inside one.
	message := "xx" + strings.Repeat("€", maxStoredErrorLen)

	got := truncate(message)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxStoredErrorLen)
	assert.Equal(t, maxStoredErrorLen-2, len(got))
	assert.True(t, strings.HasPrefix(message, got))
}

func TestTruncateCutsASCIIAtLimit(t *testing.T) {
	got := truncate(strings.Repeat("a", maxStoredErrorLen+10))
	assert.Len(t, got, maxStoredErrorLen)
}
