package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/errors"
)

func newTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pyproject.toml": "[project]\nname = \"test-project\"\nversion = \"2.1.0-beta-3\"\ndescription = \"Test Project\"\n",
		"src/main.py":    "print('hi')\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version", "--short")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if out != version+"\n" {
		t.Errorf("output = %q, want %q", out, version+"\n")
	}
}

func TestMetadata(t *testing.T) {
	dir := newTestProject(t)

	code, out, errOut := runCLI(t, "-C", dir, "metadata", "--json")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["file_version"] != "2.1.0.3" {
		t.Errorf("file_version = %q, want %q", got["file_version"], "2.1.0.3")
	}
	if got["display_name"] != "Test Project" {
		t.Errorf("display_name = %q, want %q", got["display_name"], "Test Project")
	}
}

func TestMetadata_Missing(t *testing.T) {
	code, _, errOut := runCLI(t, "-C", t.TempDir(), "metadata")
	if code != errors.ExitMetadata {
		t.Errorf("exit code = %d, want %d", code, errors.ExitMetadata)
	}
	if !strings.Contains(errOut, "MetadataError") {
		t.Errorf("stderr = %q, want MetadataError report", errOut)
	}
}

func TestInit(t *testing.T) {
	dir := newTestProject(t)

	if code, _, errOut := runCLI(t, "-C", dir, "init"); code != 0 {
		t.Fatalf("init exit code = %d, stderr: %s", code, errOut)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("config.Load error: %v", err)
	}
	if cfg.ExeStem != "test-project" {
		t.Errorf("ExeStem = %q, want %q", cfg.ExeStem, "test-project")
	}

	if code, _, _ := runCLI(t, "-C", dir, "init"); code != errors.ExitConfig {
		t.Errorf("second init exit code = %d, want %d", code, errors.ExitConfig)
	}
	if code, _, errOut := runCLI(t, "-C", dir, "init", "--force", "--stem", "example"); code != 0 {
		t.Fatalf("init --force exit code = %d, stderr: %s", code, errOut)
	}
	cfg, err = config.Load(dir)
	if err != nil {
		t.Fatalf("config.Load error: %v", err)
	}
	if cfg.ExeStem != "example" {
		t.Errorf("ExeStem = %q, want %q", cfg.ExeStem, "example")
	}
}

func TestBuild_NoConfig(t *testing.T) {
	code, _, errOut := runCLI(t, "-C", t.TempDir(), "build")
	if code != errors.ExitConfig {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfig)
	}
	if !strings.Contains(errOut, "E103") {
		t.Errorf("stderr = %q, want E103", errOut)
	}
}

func TestBuild_ToolchainMissing(t *testing.T) {
	dir := newTestProject(t)
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(`{"exe_stem": "example"}`), 0644); err != nil {
		t.Fatal(err)
	}
	buildDir := t.TempDir()
	python := filepath.Join(t.TempDir(), "no-python")

	code, _, errOut := runCLI(t, "-C", dir, "build", "--python", python, "--build-dir", buildDir, "--log-level", "error")
	if code != errors.ExitCompile {
		t.Fatalf("exit code = %d, want %d; stderr: %s", code, errors.ExitCompile, errOut)
	}
	if !strings.Contains(errOut, "E162") {
		t.Errorf("stderr = %q, want E162", errOut)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Error("dist should not exist after a failed build")
	}
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("build dir has %d entries, want 0", len(entries))
	}
}

func TestBuild_InvalidLogLevel(t *testing.T) {
	code, _, _ := runCLI(t, "-C", t.TempDir(), "build", "--log-level", "loud")
	if code != errors.ExitConfig {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfig)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
		want    string
	}{
		{"info", "text", false, "level=INFO msg=hello"},
		{"debug", "json", false, `"msg":"hello"`},
		{"WARN", "text", false, ""},
		{"loud", "text", true, ""},
		{"info", "xml", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf strings.Builder
			logger, err := newLogger(&buf, tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			logger.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log output = %q, want %q", buf.String(), tt.want)
			}
			if tt.level == "WARN" && buf.Len() != 0 {
				t.Errorf("info logged at warn level: %q", buf.String())
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.New()
	err := applyOverrides(cfg, buildFlags{
		dist:        "out",
		noArchive:   true,
		timeout:     time.Minute,
		python:      "python3.12",
		consoleMode: "force",
		bucket:      "releases",
	})
	if err != nil {
		t.Fatalf("applyOverrides error: %v", err)
	}

	wd, _ := os.Getwd()
	if cfg.DistDir != filepath.Join(wd, "out") {
		t.Errorf("DistDir = %q, want %q", cfg.DistDir, filepath.Join(wd, "out"))
	}
	if cfg.Archive {
		t.Error("Archive = true, want false")
	}
	if cfg.CompileTimeout != "1m0s" {
		t.Errorf("CompileTimeout = %q, want %q", cfg.CompileTimeout, "1m0s")
	}
	if cfg.Nuitka.Python != "python3.12" || cfg.Nuitka.ConsoleMode != "force" {
		t.Errorf("Nuitka = %+v", cfg.Nuitka)
	}
	if cfg.Publish.Bucket != "releases" {
		t.Errorf("Publish.Bucket = %q, want %q", cfg.Publish.Bucket, "releases")
	}
	if cfg.BuildDir != "" || cfg.OutputArchive != "" {
		t.Error("unset flags should not change the config")
	}
}

func TestDefaultStem(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"example", "example"},
		{"my app", "my-app"},
		{" a/b ", "a-b"},
	}
	for _, tt := range tests {
		if got := defaultStem(tt.name); got != tt.want {
			t.Errorf("defaultStem(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
