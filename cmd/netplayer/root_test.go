package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"netplayer/internal/collector"
	"netplayer/internal/config"
)

const helloConfig = `{
  "common": { "error_rate": 0 },
  "nodes": [
    { "id": 1, "tasks": [ { "dest_id": 2, "timeout_ms": 10, "payload": "hello", "count": 1 } ] },
    { "id": 2, "tasks": [] }
  ]
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetFlags puts the command flags back to their defaults for one test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	runSeed, runLogLevel, runOutput, runColor = 0, "error", "", "never"
	runTUI, runQuiet, runSummary, runBuffer = false, true, "none", collector.DefaultBuffer
	t.Cleanup(func() {
		runSeed, runLogLevel, runOutput, runColor = 0, "info", "", "auto"
		runTUI, runQuiet, runSummary, runBuffer = false, false, "text", collector.DefaultBuffer
	})
}

func TestRunNetwork_LogsDelivery(t *testing.T) {
	resetFlags(t)
	var stdout, stderr bytes.Buffer

	if err := runNetwork(context.Background(), writeConfig(t, helloConfig), &stdout, &stderr); err != nil {
		t.Fatalf("runNetwork returned error: %v", err)
	}

	line := regexp.MustCompile(`^\[0\.0\d\d\]:\(2\) Message from 1 - 'hello'\n$`)
	if !line.MatchString(stdout.String()) {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("expected nothing on stderr in quiet mode, got %q", stderr.String())
	}
}

func TestRunNetwork_DiagnosticsGoToStderr(t *testing.T) {
	resetFlags(t)
	runLogLevel = "info"
	lossy := strings.Replace(helloConfig, `"error_rate": 0`, `"error_rate": 1`, 1)
	var stdout, stderr bytes.Buffer

	if err := runNetwork(context.Background(), writeConfig(t, lossy), &stdout, &stderr); err != nil {
		t.Fatalf("runNetwork returned error: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("a fully lossy run should deliver nothing, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "error occurred while sending packet") {
		t.Errorf("expected node diagnostics on stderr, got %q", stderr.String())
	}
}

func TestRunNetwork_JSONSummaryAndOutputFile(t *testing.T) {
	resetFlags(t)
	runSummary = "json"
	runOutput = filepath.Join(t.TempDir(), "run.jsonl")
	var stdout, stderr bytes.Buffer

	if err := runNetwork(context.Background(), writeConfig(t, helloConfig), &stdout, &stderr); err != nil {
		t.Fatalf("runNetwork returned error: %v", err)
	}
	if !strings.Contains(stderr.String(), `"totalDeliveries": 1`) {
		t.Errorf("expected JSON summary on stderr, got %q", stderr.String())
	}

	data, err := os.ReadFile(runOutput)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"payload":"hello"`) {
		t.Errorf("expected delivery in JSONL file, got %q", data)
	}
}

func TestRunNetwork_InvalidConfig(t *testing.T) {
	resetFlags(t)
	var stdout, stderr bytes.Buffer

	err := runNetwork(context.Background(), writeConfig(t, `{"nodes": []}`), &stdout, &stderr)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected config.ErrInvalid, got %v", err)
	}
	if exitCode(err) != ExitError {
		t.Errorf("expected exit code %d, got %d", ExitError, exitCode(err))
	}
	if stdout.Len() != 0 {
		t.Errorf("no node should have started, got %q", stdout.String())
	}
}

func TestRunNetwork_MissingConfig(t *testing.T) {
	resetFlags(t)
	err := runNetwork(context.Background(), filepath.Join(t.TempDir(), "absent.json"), &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || exitCode(err) != ExitError {
		t.Fatalf("expected startup error, got %v", err)
	}
}

func TestRunNetwork_BadSummaryFlag(t *testing.T) {
	resetFlags(t)
	runSummary = "xml"
	if err := runNetwork(context.Background(), writeConfig(t, helloConfig), &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown summary format")
	}
}

func TestRootCommand_RequiresOneArgument(t *testing.T) {
	resetFlags(t)
	rootCmd.SetArgs([]string{})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected argument count error")
	}
	if exitCode(err) != ExitError {
		t.Errorf("expected exit code %d, got %d", ExitError, exitCode(err))
	}
}

func TestValidateCommand(t *testing.T) {
	resetFlags(t)
	var out bytes.Buffer
	path := writeConfig(t, helloConfig)
	rootCmd.SetArgs([]string{"validate", path})
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if !strings.Contains(out.String(), "OK (2 nodes, 1 send attempts)") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestReplayCommand(t *testing.T) {
	resetFlags(t)
	runOutput = filepath.Join(t.TempDir(), "run.jsonl")
	var first bytes.Buffer
	if err := runNetwork(context.Background(), writeConfig(t, helloConfig), &first, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	var replayed bytes.Buffer
	rootCmd.SetArgs([]string{"replay", "--input", runOutput, "--speed", "0", "--color", "never", "--log-level", "error"})
	rootCmd.SetOut(&replayed)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
	if replayed.String() != first.String() {
		t.Errorf("replay printed %q, run printed %q", replayed.String(), first.String())
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != ExitSuccess {
		t.Error("nil error should exit successfully")
	}
	if exitCode(errors.Join(errRunFailed, errors.New("node 3: boom"))) != ExitRunFailed {
		t.Error("run failures should use ExitRunFailed")
	}
	if exitCode(errors.New("bad flag")) != ExitError {
		t.Error("other errors should use ExitError")
	}
}
