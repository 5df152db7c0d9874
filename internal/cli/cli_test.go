package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashSecretFromArgument(t *testing.T) {
	out, err := execute(t, "", "hash-secret", "colegio2024")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("colegio2024")))
}

func TestHashSecretFromStdin(t *testing.T) {
	out, err := execute(t, "colegio2024\n", "hash-secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("colegio2024")))
}

func TestHashSecretRejectsEmpty(t *testing.T) {
	_, err := execute(t, "", "hash-secret")
	require.Error(t, err)
}

func TestMigratePrint(t *testing.T) {
	out, err := execute(t, "", "migrate", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS asistencias")
}

func TestSetupPropagatesConfigErrors(t *testing.T) {
	opts := &RootOptions{loadConfig: func() (*config.Config, error) { return nil, errors.New("bad timezone") }}
	cmd := NewResyncCommand(opts)
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad timezone")
}
