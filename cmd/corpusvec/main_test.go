package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSolr serves n abstracts. Searches starting at or beyond failFrom get
// a 503 when failFrom is not negative.
func newSolr(t *testing.T, n int, failFrom *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.Atoi(q.Get("start"))
		rows, _ := strconv.Atoi(q.Get("rows"))
		if rows > 0 && *failFrom >= 0 && start >= *failFrom {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}

		docs := []map[string]any{}
		for i := start; i < min(start+rows, n); i++ {
			docs = append(docs, map[string]any{
				"pmid":         i,
				"abstractText": fmt.Sprintf("Protein kinase binds gene promoter. Enzyme number e%d regulates expression.", i),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"numFound": n, "start": start, "docs": docs},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// run executes the CLI and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"corpusvec"}, args...))
	return out.String(), err
}

// jobArgs returns flags for a small, fast job against endpoint.
func jobArgs(t *testing.T, endpoint string) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--endpoint", endpoint,
		"--cache-dir", filepath.Join(dir, "cache"),
		"--output-dir", filepath.Join(dir, "out"),
		"--interval", "10",
		"--jobs", "2",
		"--max-trials", "1",
		"--retry-delay", "0s",
		"--backoff", "0s",
		"--dim", "16",
		"--min-count", "1",
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, err := run(t, "--log-level", tt.level, "config", "--cache-dir", t.TempDir())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.True(t, slog.Default().Enabled(context.Background(), tt.want))
			if tt.want > slog.LevelDebug {
				assert.False(t, slog.Default().Enabled(context.Background(), tt.want-4))
			}
		})
	}
}

func TestConfigCommand_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpusvec.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[index]
endpoint = "http://solr:8983/solr/medline"
query = "year:2017"

[stream]
interval = 50
max_conn = 4
`), 0o644))

	out, err := run(t, "--config", path, "config", "--interval", "30")
	require.NoError(t, err)

	assert.Contains(t, out, "http://solr:8983/solr/medline")
	assert.Contains(t, out, "year:2017")
	assert.Contains(t, out, "interval = 30", "flag wins over file")
	assert.Contains(t, out, "max_conn = 4", "file wins over default")
}

func TestConfigCommand_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpusvec.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))

	_, err := run(t, "--config", path, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration format")
}

func TestTrainCommand_Lifecycle(t *testing.T) {
	failFrom := -1
	srv := newSolr(t, 40, &failFrom)
	args := jobArgs(t, srv.URL+"/solr/pubmed")
	modelPath := filepath.Join(args[5], "pubmed.mdl")

	out, err := run(t, append([]string{"train", "--quiet"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Finished training word vectors")
	assert.Contains(t, out, modelPath)
	assert.FileExists(t, modelPath)

	out, err = run(t, append([]string{"status"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "finished")
	assert.Contains(t, out, "Offset")

	out, err = run(t, append([]string{"similar", "--top", "3"}, append(args, "kinase", "unheardof")...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "kinase")
	assert.Contains(t, out, "word not in vocabulary")

	out, err = run(t, append([]string{"train", "--quiet"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "already trained")

	out, err = run(t, append([]string{"reset"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")
	assert.FileExists(t, modelPath, "reset keeps the final model")
}

func TestTrainCommand_InterruptedAndResumed(t *testing.T) {
	failFrom := 20
	srv := newSolr(t, 40, &failFrom)
	args := jobArgs(t, srv.URL+"/solr/pubmed")

	out, err := run(t, append([]string{"train", "--quiet"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Training interrupted during the vocabulary pass at offset 20 of 40")

	out, err = run(t, append([]string{"status"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "vocabulary")
	assert.Regexp(t, `Resumable\s+true`, out)

	failFrom = -1
	out, err = run(t, append([]string{"train", "--quiet"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Finished training word vectors")
}

func TestTrainCommand_UnreachableIndex(t *testing.T) {
	args := jobArgs(t, "http://127.0.0.1:1/solr/pubmed")
	_, err := run(t, append([]string{"train", "--quiet", "--timeout", "100ms"}, args...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training failed")
}

func TestSimilarCommand_RequiresWords(t *testing.T) {
	_, err := run(t, "similar", "--model", filepath.Join(t.TempDir(), "x.mdl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one word")
}
