package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey_Stable(t *testing.T) {
	k1 := DeriveKey("pumpfun", "So11111111111111111111111111111111111111112")
	k2 := DeriveKey("pumpfun", "So11111111111111111111111111111111111111112")
	assert.Equal(t, k1, k2, "same (site, token) must always yield the same key")
	assert.NotEmpty(t, k1)
}

func TestDeriveKey_CollapsesNonAlnum(t *testing.T) {
	assert.Equal(t, DeriveKey("s", "ABC-123!"), DeriveKey("s", "ABC123"))
	assert.Equal(t, Key("s-ABC123"), DeriveKey("s", "ABC-123!"))
}

func TestDeriveKey_SiteIsPartOfKey(t *testing.T) {
	a := DeriveKey("dexscreener.com", "ABC123")
	b := DeriveKey("pump.fun", "ABC123")
	assert.NotEqual(t, a, b, "same token on different sites must not share a channel")
}

func TestDeriveKey_EmptyToken(t *testing.T) {
	assert.Equal(t, Key(""), DeriveKey("site", ""))
	assert.Equal(t, Key(""), DeriveKey("site", "---"))
}

func TestDeriveKey_EmptySiteFallsBackToToken(t *testing.T) {
	assert.Equal(t, Key("ABC123"), DeriveKey("", "ABC123"))
}
