package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	p := Ptr("x")
	assert.Equal(t, "x", *p)
	assert.Equal(t, 3, *Ptr(3))
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeIdentity("  A@X.com\n"))
	assert.Equal(t, "", NormalizeIdentity("   "))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "", Deref(nil))
	assert.Equal(t, "v", Deref(Ptr("v")))
}

func TestHasSuffixFold(t *testing.T) {
	assert.True(t, HasSuffixFold("ops@Example.COM", "@example.com"))
	assert.False(t, HasSuffixFold("ops@example.co", "@example.com"))
	assert.False(t, HasSuffixFold("x", ""))
}
