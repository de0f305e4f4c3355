package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tracker/backend/internal/app"
	"task-tracker/backend/internal/services"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "tasks.db"))

	require.NoError(t, runCLI(t, "migrate"))
	require.NoError(t, withApp(func(a *app.App, _ zerolog.Logger) error {
		_, err := a.Auth.Register(context.Background(), services.RegisterInput{
			Email: "alice@example.com", Password: "secret1", Name: "Alice",
		})
		return err
	}))

	require.NoError(t, runCLI(t, "seed", "--email", "alice@example.com"))
	// Seeding again is a no-op.
	require.NoError(t, runCLI(t, "seed", "--email", "alice@example.com"))

	exported := filepath.Join(dir, "export.txt")
	require.NoError(t, runCLI(t, "export", "--email", "alice@example.com", "--file", exported))

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, len(sampleTasks))
	assert.Contains(t, string(data), "|||Tugas 4 - Aplikasi Ulang Tahun|||2025-04-08|||PPB|||DONE")

	require.NoError(t, runCLI(t, "import", "--email", "alice@example.com", "--file", exported, "--replace"))
	require.NoError(t, runCLI(t, "import", "--email", "alice@example.com", "--file", exported))

	require.NoError(t, withApp(func(a *app.App, _ zerolog.Logger) error {
		userID, err := a.UserIDByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		summary, err := a.Tasks.Summary(context.Background(), userID)
		require.NoError(t, err)
		assert.EqualValues(t, 2*len(sampleTasks), summary.Total)
		return nil
	}))
}

func TestUnknownUser(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "tasks.db"))

	require.NoError(t, runCLI(t, "migrate"))
	err := runCLI(t, "export", "--email", "ghost@example.com", "--file", filepath.Join(dir, "out.txt"))
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestEmailFlagRequired(t *testing.T) {
	for _, name := range []string{"export", "import", "seed"} {
		err := runCLI(t, name)
		assert.Error(t, err, name)
	}
}
