package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "records.db")
	body := fmt.Sprintf(`app:
  outputDir: %[1]s/videos
  audioDir: %[1]s/audio
  tempDir: %[1]s/tmp
ai:
  providers: [template]
background:
  source: ""
  cacheDir: %[1]s/backgrounds
database:
  driver: sqlite
  path: %[2]s
%[3]s`, dir, dbPath, extra)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProvidersCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	out, err := execute(t, "--config", cfgPath, "providers")
	require.NoError(t, err)

	assert.Contains(t, out, "template")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "quotes")
	assert.Contains(t, out, "sqlite")
}

func TestRecordsCommand(t *testing.T) {
	cfgPath, dbPath := writeConfig(t, "")

	out, err := execute(t, "--config", cfgPath, "records")
	require.NoError(t, err)
	assert.Contains(t, out, "Records: none")

	store, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, Path: dbPath}, logging.Nop())
	require.NoError(t, err)
	_, err = store.Save(context.Background(), models.PipelineRecord{
		RunID:        "run-1",
		ContentTitle: "Seneca on time",
		Status:       models.RecordStatusCompleted,
		Duration:     21.5,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err = execute(t, "--config", cfgPath, "records", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Seneca on time")
	assert.Contains(t, out, "21.5s")
}

func TestTokenCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	_, err := execute(t, "--config", cfgPath, "token")
	assert.Error(t, err)

	cfgPath, _ = writeConfig(t, "server:\n  jwtSecret: s3cret\n")
	out, err := execute(t, "--config", cfgPath, "token", "--subject", "cron")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."), "expected a compact JWT")
}

func TestCacheCommand_Disabled(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	out, err := execute(t, "--config", cfgPath, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Background cache is disabled")

	out, err = execute(t, "--config", cfgPath, "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Background cache is disabled")
}

func TestRunCommand_InvalidCount(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	_, err := execute(t, "--config", cfgPath, "run", "--count", "0")
	assert.Error(t, err)
}

func TestConfigError(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "providers")
	assert.Error(t, err)
}

func TestBuildRequests(t *testing.T) {
	reqs := buildRequests(3, "stoicism", "nature")
	require.Len(t, reqs, 3)

	seen := map[string]bool{}
	for _, r := range reqs {
		assert.Equal(t, "stoicism", r.Topic)
		assert.Equal(t, "nature", r.Category)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestPrintResults(t *testing.T) {
	results := []pipeline.Result{
		{
			Request: models.RunRequest{ID: "aaaaaaaa-1111"},
			Record:  models.PipelineRecord{Status: models.RecordStatusCompleted, AIProvider: "template", Duration: 30, VideoPath: "/out/a.mp4"},
		},
		{
			Request: models.RunRequest{ID: "bbbbbbbb-2222"},
			Record:  models.PipelineRecord{Status: models.RecordStatusFailed, Reason: models.ReasonTTSFailed},
			Err:     errors.New("tts down"),
		},
	}

	var out bytes.Buffer
	err := printResults(&out, results)
	require.EqualError(t, err, "1 of 2 runs failed")

	assert.Contains(t, out.String(), "aaaaaaaa")
	assert.Contains(t, out.String(), "/out/a.mp4")
	assert.Contains(t, out.String(), models.ReasonTTSFailed)
	assert.Contains(t, out.String(), "bbbbbbbb: tts down")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}}, []columnAlignment{alignRight})
	assert.Contains(t, out, "A")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}
