package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGetter is a minimal Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func() // optional; called on each GetParameter invocation
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func TestEnvKey_ReadsAtCallTime(t *testing.T) {
	src := EnvKey("RELAY_TEST_GEMINI_KEY")

	t.Setenv("RELAY_TEST_GEMINI_KEY", "")
	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)

	t.Setenv("RELAY_TEST_GEMINI_KEY", " sk-env ")
	key, err = src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)
}

func TestParamStoreKey_CachedAfterFirstSuccess(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`}
	g.onCall = func() { calls++ }
	src := ParamStoreKey(g, "/portfolio-relay/gemini-token")

	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)

	_, _ = src.APIKey(context.Background())
	_, _ = src.APIKey(context.Background())
	require.Equal(t, 1, calls, "SSM must only be called once per process lifetime")
}

func TestParamStoreKey_RetriesAfterFailure(t *testing.T) {
	g := &fakeGetter{err: errors.New("throttled")}
	src := ParamStoreKey(g, "/portfolio-relay/gemini-token")

	_, err := src.APIKey(context.Background())
	require.ErrorContains(t, err, "throttled")

	g.err = nil
	g.val = "sk-bare"
	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-bare", key)
}

func TestFetchAPIKey_JSONToken(t *testing.T) {
	key, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"token":"sk-from-json"}`}, "/p/gemini-token")
	require.NoError(t, err)
	require.Equal(t, "sk-from-json", key)
}

func TestFetchAPIKey_JSONMissingTokenField(t *testing.T) {
	key, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"other":"value"}`}, "/p/gemini-token")
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestFetchAPIKey_MalformedJSON(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"broken`}, "/p/gemini-token")
	require.ErrorContains(t, err, "unmarshal")
}

func TestFetchAPIKey_NilGetter(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), nil, "/p/gemini-token")
	require.ErrorContains(t, err, "nil")
}

func TestFetchAPIKey_EmptyName(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: "k"}, "")
	require.ErrorContains(t, err, "empty")
}

func TestFirstKey(t *testing.T) {
	empty := staticKey("")
	broken := KeySourceFunc(func(context.Context) (string, error) { return "", errors.New("boom") })

	key, err := FirstKey(empty, nil, staticKey("second")).APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "second", key)

	key, err = FirstKey(staticKey("first"), broken).APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "first", key)

	_, err = FirstKey(empty, broken).APIKey(context.Background())
	require.ErrorContains(t, err, "boom")

	key, err = FirstKey().APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)
}
