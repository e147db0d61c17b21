package guardrails

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatdemo/chatdemo-go/internal/errs"
)

func TestZeroConfigAcceptsAnything(t *testing.T) {
	g := New(nil, 0)
	require.True(t, g.Skip(""))
	require.False(t, g.Skip(" "))
	require.NoError(t, g.CheckInput(strings.Repeat("x", 100000)))
	require.NoError(t, g.CheckInput(""))
}

func TestBannedTerms(t *testing.T) {
	g := New([]string{" Forbidden ", ""}, 0)
	err := g.CheckInput("this is FORBIDDEN content")
	require.True(t, errs.Is(err, errs.InputRejected))
	require.NoError(t, g.CheckInput("this is fine"))
}

func TestMaxLengthCountsRunes(t *testing.T) {
	g := New(nil, 3)
	require.NoError(t, g.CheckInput("äöü"))
	require.True(t, errs.Is(g.CheckInput("abcd"), errs.InputRejected))
}
