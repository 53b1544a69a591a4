package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"quillboard/internal/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("QUILL_AUTH_SECRET", "cli-secret")

	out, err := execute(t, "token", "user-1", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("cli-secret", time.Hour).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("QUILL_AUTH_SECRET", "")

	_, err := execute(t, "token", "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth-secret")
}

func TestAddThenListCommands(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	t.Setenv("QUILL_AUTH_SECRET", "cli-secret")
	t.Setenv("QUILL_REDIS", mr.Addr())
	t.Setenv("QUILL_BADGER", t.TempDir())

	_, err = execute(t, "add", "--user", "user-1", "--title", "From the CLI", "--content", "body")
	require.NoError(t, err)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "From the CLI")
	assert.Contains(t, out, "user-1")

	_, err = execute(t, "import", "https://example.com/post", "--user", "user-1")
	require.NoError(t, err)
	queue, err := mr.List("queue:import")
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}
