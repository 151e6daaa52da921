package apl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryAPL_RoundTrip(t *testing.T) {
	m := NewMemoryAPL(zap.NewNop().Sugar())
	ctx := context.Background()

	want := record("https://shop.example/graphql/")
	require.NoError(t, m.Set(ctx, want))

	got, ok := m.Get(ctx, want.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, m.Delete(ctx, want.SaleorAPIURL))
	_, ok = m.Get(ctx, want.SaleorAPIURL)
	assert.False(t, ok)
}

func TestMemoryAPL_DeleteAbsentIsNoop(t *testing.T) {
	m := NewMemoryAPL(zap.NewNop().Sugar())
	assert.NoError(t, m.Delete(context.Background(), "https://nowhere.example/graphql/"))
}

func TestMemoryAPL_IsConfigured(t *testing.T) {
	m := NewMemoryAPL(zap.NewNop().Sugar())
	ctx := context.Background()

	// Untouched store: configurable.
	assert.True(t, m.IsConfigured(ctx))

	a := record("https://a.example/graphql/")
	require.NoError(t, m.Set(ctx, a))
	assert.True(t, m.IsConfigured(ctx))

	// Written to and emptied: no longer "never existed".
	require.NoError(t, m.Delete(ctx, a.SaleorAPIURL))
	assert.False(t, m.IsConfigured(ctx))
}

func TestMemoryAPL_GetAll(t *testing.T) {
	m := NewMemoryAPL(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, record("https://a.example/graphql/")))
	require.NoError(t, m.Set(ctx, record("https://b.example/graphql/")))

	all := m.GetAll(ctx)
	assert.Len(t, all, 2)
}
