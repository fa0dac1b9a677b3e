package persona

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

type fakeParams struct {
	val  string
	err  error
	name string
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	f.name = name
	return f.val, f.err
}

func isMissing(err error) bool { return errors.Is(err, errMissing) }

const customYAML = `
owner: Jane Doe
language: en
fallback_message: "I can't process that request right now."
instruction: |
  You are Jane's portfolio assistant.
`

func TestDefault_Embedded(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	require.Equal(t, "Muhammad Farhan", p.Owner)
	require.Equal(t, "id", p.Language)
	require.Contains(t, p.Instruction, "PROJECTS:")
	require.Contains(t, p.Instruction, "Kotlin, Jetpack Compose")
	require.Equal(t, "Maaf, saya tidak dapat memproses pertanyaan Anda.", p.FallbackMessage)
	require.Equal(t, "Terjadi kesalahan saat memproses pesan", p.ErrorMessage)
}

func TestParse_DefaultsErrorMessage(t *testing.T) {
	p, err := Parse([]byte(customYAML))
	require.NoError(t, err)
	require.Equal(t, "You are Jane's portfolio assistant.", p.Instruction)
	require.Equal(t, defaultErrorMessage, p.ErrorMessage)
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte("fallback_message: x\n"))
	require.ErrorContains(t, err, "instruction")

	_, err = Parse([]byte("instruction: x\n"))
	require.ErrorContains(t, err, "fallback_message")

	_, err = Parse([]byte("instruction: [unclosed"))
	require.ErrorContains(t, err, "decode yaml")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", p.Owner)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read")
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o600))
	ctx := context.Background()

	params := &fakeParams{val: "owner: From SSM\ninstruction: ssm\nfallback_message: fb\n"}
	p, err := Load(ctx, Options{Params: params, ParamName: "/relay/persona", File: path}, isMissing)
	require.NoError(t, err)
	require.Equal(t, "From SSM", p.Owner)
	require.Equal(t, "/relay/persona", params.name)

	p, err = Load(ctx, Options{Params: &fakeParams{err: errMissing}, ParamName: "/relay/persona", File: path}, isMissing)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", p.Owner)

	p, err = Load(ctx, Options{Params: &fakeParams{err: errMissing}, ParamName: "/relay/persona"}, isMissing)
	require.NoError(t, err)
	require.Equal(t, "Muhammad Farhan", p.Owner)

	p, err = Load(ctx, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, "Muhammad Farhan", p.Owner)
}

func TestLoad_ParamFailureIsFatal(t *testing.T) {
	_, err := Load(context.Background(), Options{Params: &fakeParams{err: errors.New("access denied")}, ParamName: "/relay/persona"}, isMissing)
	require.ErrorContains(t, err, "access denied")
}
