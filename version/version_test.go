package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoString(t *testing.T) {
	dev := Info{CommitHash: "0123456789abcdef", BuildTime: "2026-01-01", Version: "dev"}
	_, ok := dev.Release()
	assert.False(t, ok)
	assert.Equal(t, "lpdash dev (commit 0123456, built 2026-01-01)", dev.String())

	tagged := Info{CommitHash: "abc", BuildTime: "2026-01-01", Version: "v1.4.2"}
	v, ok := tagged.Release()
	require.True(t, ok)
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, "lpdash v1.4.2 (commit abc, built 2026-01-01)", tagged.String())
}

func TestGetFillsRuntime(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
