package commands

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevelFlags(t *testing.T) {
	tests := []struct {
		name        string
		flags       []string
		environ     []string
		wantDefault string
		wantPkgs    map[string]string
		wantErr     bool
	}{
		{
			name:        "default only",
			flags:       []string{"debug"},
			wantDefault: "debug",
			wantPkgs:    map[string]string{},
		},
		{
			name:        "package override",
			flags:       []string{"default=warn", "agent.model=debug"},
			wantDefault: "warn",
			wantPkgs:    map[string]string{"agent.model": "debug"},
		},
		{
			name:        "flag beats environment",
			flags:       []string{"info", "search=error"},
			environ:     []string{"LOG_LEVEL_SEARCH=debug", "LOG_LEVEL_PIPELINE=warn", "HOME=/root"},
			wantDefault: "info",
			wantPkgs:    map[string]string{"search": "error", "pipeline": "warn"},
		},
		{
			name:    "invalid default",
			flags:   []string{"loud"},
			wantErr: true,
		},
		{
			name:    "invalid package level",
			flags:   []string{"info", "search=verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, pkgs, err := parseLogLevelFlags(tt.flags, tt.environ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, def)
			assert.Equal(t, tt.wantPkgs, pkgs)
		})
	}
}

func TestConvertEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "agent.model", convertEnvKeyToPackageName("LOG_LEVEL_AGENT_MODEL"))
	assert.Equal(t, "apiserver", convertEnvKeyToPackageName("LOG_LEVEL_APISERVER"))
}

// clearEnv removes variables that would change which model or key is used.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "BONVOYAGE_LLM_MODEL", "BONVOYAGE_LLM_API_KEY"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		modelFlag = ""
		configPath = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, model, searchURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bonvoyage.yaml")
	content := fmt.Sprintf("llm:\n  model: %s\nsearch:\n  base_url: %s\n  rate_per_second: 0\n", model, searchURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestPlanCommand_ScriptedModel(t *testing.T) {
	clearEnv(t)

	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	outDir := t.TempDir()
	out, err := runCommand(t, "plan",
		"--config", writeTestConfig(t, "mock", srv.URL),
		"--from", "Paris",
		"--to", "Tokyo",
		"--depart", "2025-04-01",
		"--return", "2025-04-05",
		"--interests", "food, temples",
		"--out", outDir,
		"--log-level", "error",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Step 1/4: Researching travel logistics...")
	assert.Contains(t, out, "Step 4/4: ")
	assert.Contains(t, out, "Your travel plan is ready!")

	data, err := os.ReadFile(filepath.Join(outDir, "Travel_Plan_Tokyo_2025-04-01.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Day 1")
	assert.Contains(t, out, string(data), "printed itinerary matches the saved file")
	assert.Equal(t, int32(2), searches.Load())
}

func TestPlanCommand_InvalidDates(t *testing.T) {
	clearEnv(t)
	outDir := t.TempDir()

	_, err := runCommand(t, "plan",
		"--from", "Paris",
		"--to", "Tokyo",
		"--depart", "2025-04-05",
		"--return", "2025-04-01",
		"--interests", "food",
		"--out", outDir,
	)
	require.Error(t, err)
	assert.Equal(t, "Return date must be after departure date!", err.Error())

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlanCommand_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := runCommand(t, "plan",
		"--config", writeTestConfig(t, "gemini-2.5-flash", "http://127.0.0.1:1"),
		"--from", "Paris",
		"--to", "Tokyo",
		"--depart", "2025-04-01",
		"--return", "2025-04-05",
		"--interests", "food",
		"--out", t.TempDir(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
