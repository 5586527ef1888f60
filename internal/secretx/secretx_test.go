package secretx

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubTerminal(t *testing.T, tty bool, pw []byte, err error) {
	t.Helper()
	origRead, origTTY := readPassword, isTerminal
	readPassword = func(int) ([]byte, error) { return pw, err }
	isTerminal = func(int) bool { return tty }
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTTY })
}

func TestTerminal_ReadsWithoutEcho(t *testing.T) {
	stubTerminal(t, true, []byte("Str0ng!Pass1234"), nil)

	var out bytes.Buffer
	src := &Terminal{Out: &out}
	got, err := src.Secret("Master password")
	require.NoError(t, err)
	assert.Equal(t, "Str0ng!Pass1234", string(got))
	assert.Equal(t, "Master password: \n", out.String())
}

func TestTerminal_ReadError(t *testing.T) {
	stubTerminal(t, true, nil, errors.New("tty gone"))

	_, err := (&Terminal{Out: &bytes.Buffer{}}).Secret("x")
	require.EqualError(t, err, "tty gone")
}

func TestTerminal_PipedInput(t *testing.T) {
	stubTerminal(t, false, nil, nil)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "line", in: "secret\nrest\n", want: "secret"},
		{name: "crlf", in: "secret\r\n", want: "secret"},
		{name: "no newline", in: "secret", want: "secret"},
		{name: "empty input", in: "", wantErr: ErrNoSecret},
		{name: "empty line", in: "\n", wantErr: ErrNoSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &Terminal{In: strings.NewReader(tt.in), Out: &bytes.Buffer{}}
			got, err := src.Secret("p")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("VAULT_TEST_SECRET", "from-env")

	got, err := Env{Var: "VAULT_TEST_SECRET"}.Secret("ignored")
	require.NoError(t, err)
	assert.Equal(t, "from-env", string(got))

	_, err = Env{Var: "VAULT_TEST_SECRET_UNSET"}.Secret("")
	require.ErrorIs(t, err, ErrNoSecret)

	t.Setenv("VAULT_TEST_SECRET", "")
	_, err = Env{Var: "VAULT_TEST_SECRET"}.Secret("")
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	assert.Equal(t, make([]byte, 6), b)
}

func TestTerminal_ConsecutivePipedSecrets(t *testing.T) {
	stubTerminal(t, false, nil, nil)

	src := &Terminal{In: strings.NewReader("old-secret\nnew-secret\n"), Out: &bytes.Buffer{}}
	first, err := src.Secret("old")
	require.NoError(t, err)
	second, err := src.Secret("new")
	require.NoError(t, err)
	assert.Equal(t, "old-secret", string(first))
	assert.Equal(t, "new-secret", string(second))
}
