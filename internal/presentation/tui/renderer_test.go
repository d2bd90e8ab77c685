package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	out, err := r("# Insights\n\n- **Coverage** is good")
	require.NoError(t, err)
	assert.Contains(t, out, "Insights")
	assert.Contains(t, out, "Coverage")
}

func TestPlain(t *testing.T) {
	out, err := Plain("# raw")
	require.NoError(t, err)
	assert.Equal(t, "# raw", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Equal(t, 8, strings.Count(buf.String(), "\n"))
}
