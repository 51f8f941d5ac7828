package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

const fullManifest = `[project]
name = "test-project"
version = "1.0.0-alpha-1"
description = "A test project for testing the build system"
authors = [{ name = "Cutleast", email = "cutleast@example.com" }, { name = "Other" }]
license = { file = "LICENSE" }

[tool.pyfreeze]
ignored = true
`

func writeProject(t *testing.T, manifest string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoad(t *testing.T) {
	root := writeProject(t, fullManifest)
	if err := os.WriteFile(filepath.Join(root, "LICENSE"), []byte("Test license\n\nMore text\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	want := &Metadata{
		Name:        "test-project",
		DisplayName: "A test project for testing the build system",
		Description: "A test project for testing the build system",
		Version:     "1.0.0-alpha-1",
		Prerelease:  "alpha-1",
		FileVersion: "1.0.0.1",
		Author:      "Cutleast",
		License:     "Test license",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Minimal(t *testing.T) {
	root := writeProject(t, "[project]\nname = \"test-project\"\nversion = \"1.0.0-alpha-1\"\n")

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.DisplayName != "test-project" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "test-project")
	}
	if got.FileVersion != "1.0.0.1" {
		t.Errorf("FileVersion = %q, want %q", got.FileVersion, "1.0.0.1")
	}
	if got.Author != "" || got.License != "" {
		t.Errorf("Author/License = %q/%q, want empty", got.Author, got.License)
	}
}

func TestLoad_Deterministic(t *testing.T) {
	manifest := "[project]\nname = \"x\"\nversion = \"2.3.4\"\nlicense = \"MIT\"\n"
	first, err := Parse([]byte(manifest), "")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	second, err := Parse([]byte(manifest), "")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical manifests differ (-first +second):\n%s", diff)
	}
	if first.License != "MIT" {
		t.Errorf("License = %q, want %q", first.License, "MIT")
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, errors.KindMetadata) {
		t.Fatalf("Load error = %v, want MetadataError", err)
	}
	if be, _ := errors.As(err); be.Code != "E120" {
		t.Errorf("Code = %q, want %q", be.Code, "E120")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		manifest  string
		wantCode  string
		wantField string
	}{
		{"invalid toml", "[project\nname=", "E121", ""},
		{"no project table", "[tool.x]\na = 1\n", "E122", "project"},
		{"missing name", "[project]\nversion = \"1.0.0\"\n", "E122", "project.name"},
		{"missing version", "[project]\nname = \"x\"\n", "E122", "project.version"},
		{"non-string version", "[project]\nname = \"x\"\nversion = 1\n", "E123", "project.version"},
		{"unparseable version", "[project]\nname = \"x\"\nversion = \"one\"\n", "E123", "project.version"},
		{"short version", "[project]\nname = \"x\"\nversion = \"1.0\"\n", "E123", "project.version"},
		{"license table without keys", "[project]\nname = \"x\"\nversion = \"1.0.0\"\nlicense = {}\n", "E122", "project.license"},
		{"missing license file", "[project]\nname = \"x\"\nversion = \"1.0.0\"\nlicense = { file = \"NOPE\" }\n", "E124", "project.license.file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest), t.TempDir())
			be, ok := errors.As(err)
			if !ok {
				t.Fatalf("Parse error = %v, want BuildError", err)
			}
			if be.Kind != errors.KindMetadata {
				t.Errorf("Kind = %q, want %q", be.Kind, errors.KindMetadata)
			}
			if be.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", be.Code, tt.wantCode)
			}
			if be.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", be.Field, tt.wantField)
			}
		})
	}
}

func TestFileVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantPre string
	}{
		{"1.2.3", "1.2.3", ""},
		{"1.0.0-alpha-1", "1.0.0.1", "alpha-1"},
		{"2.1.0-rc.3", "2.1.0.0", "rc.3"},
		{"3.0.0-beta-12.x", "3.0.0.12", "beta-12.x"},
		{"4.5.6+build.7", "4.5.6", ""},
		{"v1.2.3", "1.2.3", ""},
	}
	for _, tt := range tests {
		got, pre, err := FileVersion(tt.in)
		if err != nil {
			t.Errorf("FileVersion(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want || pre != tt.wantPre {
			t.Errorf("FileVersion(%q) = %q, %q; want %q, %q", tt.in, got, pre, tt.want, tt.wantPre)
		}
	}
}

func TestParse_LicenseText(t *testing.T) {
	md, err := Parse([]byte("[project]\nname = \"x\"\nversion = \"1.0.0\"\nlicense = { text = \"Copyright (c) Example\\nAll rights reserved\" }\n"), "")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if md.License != "Copyright (c) Example" {
		t.Errorf("License = %q, want %q", md.License, "Copyright (c) Example")
	}
}
