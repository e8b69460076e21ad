package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if got := out.String(); got != "che-server version 1.2.3\n" {
		t.Errorf("Unexpected version output: %q", got)
	}
}

func TestProvidersCommand(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
providers:
  - name: github
    clientID: client-id
    clientSecret: client-secret
    scopes: [repo, user:email]
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	providersConfigPath = configPath
	defer func() { providersConfigPath = "" }()

	var out bytes.Buffer
	providersCmd.SetOut(&out)

	if err := runProviders(providersCmd, nil); err != nil {
		t.Fatalf("providers command failed: %v", err)
	}
	if !strings.Contains(out.String(), "github") {
		t.Errorf("Expected provider in output, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "oauth2") {
		t.Errorf("Expected defaulted protocol in output, got: %s", out.String())
	}
}

func TestProvidersCommand_NoProviders(t *testing.T) {
	providersConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { providersConfigPath = "" }()

	var out bytes.Buffer
	providersCmd.SetOut(&out)

	if err := runProviders(providersCmd, nil); err != nil {
		t.Fatalf("providers command failed: %v", err)
	}
	if !strings.Contains(out.String(), "No OAuth providers configured") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}
