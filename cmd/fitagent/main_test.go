package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "fitagent dev") {
		t.Errorf("out = %q", out)
	}
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	body := "providers:\n  - name: local\n    model: llama3\n    base_url: http://localhost:11434/v1\n"
	if err := os.WriteFile(good, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "config", "check", good)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK (1 providers)") || !strings.Contains(out, "local: llama3 (primary)") {
		t.Errorf("out = %q", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("agent:\n  max_steps: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "config", "check", bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestAsk_RequiresPrompt(t *testing.T) {
	t.Parallel()

	if _, err := run(t, "ask"); err == nil {
		t.Error("expected argument error")
	}
}
