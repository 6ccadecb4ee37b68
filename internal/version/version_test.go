package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/514-labs/planes/internal/version"
)

func TestGenerateVersionedCacheKey(t *testing.T) {
	t.Parallel()

	key := version.GenerateVersionedCacheKey("chatcache", "anthropic|m", "How many aircraft?")
	parts := strings.Split(key, ":")
	assert.Len(t, parts, 3)
	assert.Equal(t, "chatcache", parts[0])
	assert.Len(t, parts[1], 64)
	assert.Equal(t, "tv1.0_sv1.0_pv1.0", parts[2])

	assert.Equal(t, key, version.GenerateVersionedCacheKey("chatcache", "anthropic|m", "How many aircraft?"))
	assert.NotEqual(t, key, version.GenerateVersionedCacheKey("chatcache", "openai|m", "How many aircraft?"))
	assert.NotEqual(t, key, version.GenerateVersionedCacheKey("chatcache", "anthropic|m", "How many aircraft"))
	// The separator keeps scope and prompt from bleeding into each other.
	assert.NotEqual(t,
		version.GenerateVersionedCacheKey("p", "ab", "c"),
		version.GenerateVersionedCacheKey("p", "a", "bc"),
	)
}
