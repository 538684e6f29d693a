package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"faq-assistant/app"
	"faq-assistant/config"
	"faq-assistant/faq"
	"faq-assistant/web/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestApp points openApp at a temporary FAQ and a fake chat server.
func setupTestApp(t *testing.T) *atomic.Int32 {
	t.Helper()

	var llmCalls atomic.Int32
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		llmCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Библиотека открыта с 9 до 18."}}]}`))
	}))
	t.Cleanup(llm.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "faq.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"question": "Часы работы библиотеки", "answer": "С 9 до 18."},
		{"question": "Где находится парк?", "answer": "В центре города."}
	]`), 0o644))

	cfg := &config.Config{
		LLMBaseURL:        llm.URL,
		ModelID:           "test-model",
		MaxRetries:        1,
		EmbeddingProvider: config.EmbeddingProviderNone,
		FAQFiles:          []string{path, filepath.Join(dir, "missing.json")},
		SemanticTopK:      5,
		HintTopK:          3,
		RelevanceFloor:    0.3,
		ReliableThreshold: 0.7,
		MaxAdditional:     2,
		UseSemantic:       true,
	}

	original := openApp
	openApp = func(ctx context.Context) (*app.App, error) {
		return app.Build(ctx, cfg, zap.NewNop())
	}
	t.Cleanup(func() { openApp = original })
	return &llmCalls
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	askNoSemantic, askJSON, askHTML, sourcesJSON = false, false, false, false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_RejectsBlankQuery(t *testing.T) {
	llmCalls := setupTestApp(t)

	_, err := execute(t, "ask", "   ")
	require.Error(t, err)
	assert.Equal(t, "query must not be empty", err.Error())
	assert.Zero(t, llmCalls.Load())
}

func TestAskCmd_ExactAnswer(t *testing.T) {
	llmCalls := setupTestApp(t)

	out, err := execute(t, "ask", "где находится ПАРК?")
	require.NoError(t, err)
	assert.Equal(t, "В центре города.\n", out)
	assert.Zero(t, llmCalls.Load())
}

func TestAskCmd_JSONWithLLM(t *testing.T) {
	llmCalls := setupTestApp(t)

	out, err := execute(t, "ask", "--json", "--no-semantic", "Когда открыта библиотека?")
	require.NoError(t, err)

	var resp types.AskResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "llm", resp.Stage)
	assert.Equal(t, "Библиотека открыта с 9 до 18.", resp.Answer)
	assert.Empty(t, resp.HTML)
	assert.Equal(t, int32(1), llmCalls.Load())
}

func TestAskCmd_HTML(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "ask", "--html", "Часы работы библиотеки")
	require.NoError(t, err)
	assert.Contains(t, out, "<p>С 9 до 18.</p>")
}

func TestSourcesCmd(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "Total entries: 2, semantic search: false")
}

func TestSourcesCmd_JSON(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "sources", "--json")
	require.NoError(t, err)

	var reports []faq.SourceReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, faq.SourceLoaded, reports[0].Status)
	assert.Equal(t, 2, reports[0].Entries)
	assert.Equal(t, faq.SourceMissing, reports[1].Status)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "faq-cli version test-version-1.0.0")
}
