package apl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFileAPL(t *testing.T) (*FileAPL, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.json")
	return NewFileAPL(path, zap.NewNop().Sugar()), path
}

func record(url string) AuthData {
	return AuthData{SaleorAPIURL: url, Token: "token-" + url, AppID: "app-" + url}
}

func TestFileAPL_RoundTrip(t *testing.T) {
	f, _ := newFileAPL(t)
	ctx := context.Background()

	want := AuthData{
		SaleorAPIURL: "https://shop.example/graphql/",
		Token:        "t1",
		AppID:        "app1",
		Domain:       "shop.example",
		JWKS:         `{"keys":[]}`,
	}
	require.NoError(t, f.Set(ctx, want))

	got, ok := f.Get(ctx, want.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileAPL_GetAbsent(t *testing.T) {
	f, _ := newFileAPL(t)

	_, ok := f.Get(context.Background(), "https://nowhere.example/graphql/")
	assert.False(t, ok)
}

// A file written by an old single-tenant deployment holds one flat record.
// It must resolve for its own URL only, and count as one entry.
func TestFileAPL_LegacySingleRecordShape(t *testing.T) {
	f, path := newFileAPL(t)
	ctx := context.Background()

	legacy := record("https://legacy.example/graphql/")
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	got, ok := f.Get(ctx, legacy.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, legacy, got)

	_, ok = f.Get(ctx, "https://other.example/graphql/")
	assert.False(t, ok)

	all := f.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, legacy, all[0])
	assert.True(t, f.IsConfigured(ctx))
}

// Set on a legacy file normalizes it to the keyed shape without dropping the
// existing tenant.
func TestFileAPL_SetNormalizesLegacyShape(t *testing.T) {
	f, path := newFileAPL(t)
	ctx := context.Background()

	legacy := record("https://legacy.example/graphql/")
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	second := record("https://second.example/graphql/")
	require.NoError(t, f.Set(ctx, second))

	gotLegacy, ok := f.Get(ctx, legacy.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, legacy, gotLegacy)
	gotSecond, ok := f.Get(ctx, second.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, second, gotSecond)

	// On disk the file is now keyed: no top-level saleorApiUrl field.
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	var probe map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(onDisk, &probe))
	assert.NotContains(t, probe, "saleorApiUrl")
	assert.Contains(t, probe, legacy.SaleorAPIURL)
	assert.Contains(t, probe, second.SaleorAPIURL)
}

func TestFileAPL_MultiTenantIsolation(t *testing.T) {
	f, _ := newFileAPL(t)
	ctx := context.Background()

	a := record("https://a.example/graphql/")
	b := record("https://b.example/graphql/")
	require.NoError(t, f.Set(ctx, a))
	require.NoError(t, f.Set(ctx, b))

	require.NoError(t, f.Delete(ctx, a.SaleorAPIURL))

	_, ok := f.Get(ctx, a.SaleorAPIURL)
	assert.False(t, ok)
	gotB, ok := f.Get(ctx, b.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, b, gotB)
}

// Deleting down to one (or zero) entries never collapses the file back to
// the legacy single-record shape.
func TestFileAPL_DeleteNeverCollapsesShape(t *testing.T) {
	f, path := newFileAPL(t)
	ctx := context.Background()

	a := record("https://a.example/graphql/")
	b := record("https://b.example/graphql/")
	require.NoError(t, f.Set(ctx, a))
	require.NoError(t, f.Set(ctx, b))
	require.NoError(t, f.Delete(ctx, a.SaleorAPIURL))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	var probe map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(onDisk, &probe))
	assert.NotContains(t, probe, "saleorApiUrl")
	require.Len(t, probe, 1)

	require.NoError(t, f.Delete(ctx, b.SaleorAPIURL))
	onDisk, err = os.ReadFile(path)
	require.NoError(t, err)
	probe = nil
	require.NoError(t, json.Unmarshal(onDisk, &probe))
	assert.Empty(t, probe)
}

// Deleting the single legacy record destroys the file itself.
func TestFileAPL_DeleteLegacyDestroysFile(t *testing.T) {
	f, path := newFileAPL(t)
	ctx := context.Background()

	legacy := record("https://legacy.example/graphql/")
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	require.NoError(t, f.Delete(ctx, legacy.SaleorAPIURL))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// Deleting a non-matching key from a legacy file leaves it untouched.
func TestFileAPL_DeleteLegacyNonMatching(t *testing.T) {
	f, path := newFileAPL(t)
	ctx := context.Background()

	legacy := record("https://legacy.example/graphql/")
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	require.NoError(t, f.Delete(ctx, "https://other.example/graphql/"))

	_, ok := f.Get(ctx, legacy.SaleorAPIURL)
	assert.True(t, ok)
}

func TestFileAPL_DeleteAbsentIsNoop(t *testing.T) {
	f, _ := newFileAPL(t)
	ctx := context.Background()

	assert.NoError(t, f.Delete(ctx, "https://nowhere.example/graphql/"))

	require.NoError(t, f.Set(ctx, record("https://a.example/graphql/")))
	assert.NoError(t, f.Delete(ctx, "https://nowhere.example/graphql/"))
}

func TestFileAPL_IsConfigured(t *testing.T) {
	f, _ := newFileAPL(t)
	ctx := context.Background()

	// Backing file never existed: not yet configured, but configurable.
	assert.True(t, f.IsConfigured(ctx))

	a := record("https://a.example/graphql/")
	require.NoError(t, f.Set(ctx, a))
	assert.True(t, f.IsConfigured(ctx))

	// File exists but holds zero records: not configured.
	require.NoError(t, f.Delete(ctx, a.SaleorAPIURL))
	assert.False(t, f.IsConfigured(ctx))
}

// A corrupt file degrades to empty reads; it never breaks request handling.
func TestFileAPL_CorruptFileReadsAsEmpty(t *testing.T) {
	f, path := newFileAPL(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok := f.Get(ctx, "https://a.example/graphql/")
	assert.False(t, ok)
	assert.Empty(t, f.GetAll(ctx))
	assert.True(t, f.IsConfigured(ctx))

	// A write over the corrupt file starts from empty and succeeds.
	a := record("https://a.example/graphql/")
	require.NoError(t, f.Set(ctx, a))
	got, ok := f.Get(ctx, a.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestFileAPL_SetOverwritesIdempotently(t *testing.T) {
	f, _ := newFileAPL(t)
	ctx := context.Background()

	a := record("https://a.example/graphql/")
	require.NoError(t, f.Set(ctx, a))
	a.Token = "rotated"
	require.NoError(t, f.Set(ctx, a))

	got, ok := f.Get(ctx, a.SaleorAPIURL)
	require.True(t, ok)
	assert.Equal(t, "rotated", got.Token)
	assert.Len(t, f.GetAll(ctx), 1)
}
