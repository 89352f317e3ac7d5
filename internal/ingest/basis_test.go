package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyNumber(t *testing.T, key string) int {
	t.Helper()
	require.True(t, strings.HasPrefix(key, ProvisionalPrefix), key)
	n, err := strconv.Atoi(strings.TrimPrefix(key, ProvisionalPrefix))
	require.NoError(t, err)
	return n
}

func TestCounter_IssuesIncreasingKeys(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(41)

	first, err := c.IssueProvisionalKey(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "TEMP-42", first)

	second, err := c.IssueProvisionalKey(ctx, "X2")
	require.NoError(t, err)
	assert.Greater(t, keyNumber(t, second), keyNumber(t, first))

	again, err := c.IssueProvisionalKey(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	assert.Equal(t, []string{"X1", "X2"}, c.Queue())
	assert.Equal(t, int64(43), c.Last())
}

func TestCounter_RunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := NewCounter(0), NewCounter(0)

	ka, _ := a.IssueProvisionalKey(ctx, "X")
	kb, _ := b.IssueProvisionalKey(ctx, "Y")
	assert.Equal(t, "TEMP-1", ka)
	assert.Equal(t, "TEMP-1", kb)
	assert.Equal(t, []string{"X"}, a.Queue())
	assert.Equal(t, []string{"Y"}, b.Queue())
}

func TestBasisResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	counter := NewCounter(0)
	r := NewBasisResolver(productMap{"ABC123": "WIDGET-1", "ABC124": "WIDGET-1"}, counter)

	basis := []string{"ABC123", "NOPE", "ABC124", "NOPE", "ALSO-NOPE"}
	provisional, err := r.Resolve(ctx, basis)
	require.NoError(t, err)

	assert.Equal(t, []string{"WIDGET-1", "TEMP-1", "WIDGET-1", "TEMP-1", "TEMP-2"}, basis)
	assert.Equal(t, map[string]string{"NOPE": "TEMP-1", "ALSO-NOPE": "TEMP-2"}, provisional)
	assert.Equal(t, []string{"NOPE", "ALSO-NOPE"}, counter.Queue(), "each identifier queued exactly once")

	// A later file in the same run continues the sequence.
	basis = []string{"LATE"}
	_, err = r.Resolve(ctx, basis)
	require.NoError(t, err)
	assert.Greater(t, keyNumber(t, basis[0]), 2)
}

type failingIssuer struct{}

func (failingIssuer) IssueProvisionalKey(context.Context, string) (string, error) {
	return "", errors.New("disk full")
}

func TestBasisResolver_IssuerFailure(t *testing.T) {
	r := NewBasisResolver(productMap{}, failingIssuer{})
	_, err := r.Resolve(context.Background(), []string{"X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
