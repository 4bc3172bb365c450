package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliTestEnv struct {
	configPath string
	dbPath     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	dbPath := filepath.Join(base, "serieswatch.db")
	configPath := filepath.Join(base, "config.yml")
	config := "database:\n  path: " + dbPath + "\nlog:\n  level: error\ncatalog:\n  lookup_base_url: http://127.0.0.1:1\n  api_base_url: http://127.0.0.1:1/%s\n  timeout_seconds: 1\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return &cliTestEnv{configPath: configPath, dbPath: dbPath}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var configFlag string
	ctx := newCommandContext(&configFlag)
	defer ctx.close()

	cmd := newRootCommand(ctx, &configFlag)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliTestEnv) seed(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", e.dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO users (id, username, created_at) VALUES (1, 'reader', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO series (id, title, created_at) VALUES (1, 'Saga', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
}

func TestRegionsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "regions")
	require.NoError(t, err)
	assert.Contains(t, out, "co.uk")
	assert.Contains(t, out, "de")
}

func TestFollowFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	// The first command creates and migrates the database.
	_, err := env.run(t, "releases", "1")
	require.NoError(t, err)
	env.seed(t)

	out, err := env.run(t, "follow", "1", "1", "--region", "de")
	require.NoError(t, err)
	assert.Contains(t, out, "region de")

	out, err = env.run(t, "tracked", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Saga")

	out, err = env.run(t, "releases", "1", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "No releases")

	out, err = env.run(t, "sweep")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Sweep finished"))

	_, err = env.run(t, "unfollow", "1", "1")
	require.NoError(t, err)
	_, err = env.run(t, "unfollow", "1", "1")
	assert.Error(t, err)
}

func TestCheckCommandRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "check", "abc")
	assert.ErrorContains(t, err, "invalid tracked series id")
}
