package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
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

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader error: %v", err)
	}
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(body)
	}
	return out
}

func TestWrite(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"example":         "binary",
		"lib/module.so":   "so",
		"res/LICENSE.txt": "MIT",
	})

	tests := []struct {
		name string
		root string
		want map[string]string
	}{
		{
			name: "root folder",
			root: "example",
			want: map[string]string{
				"example/":                "",
				"example/example":         "binary",
				"example/lib/":            "",
				"example/lib/module.so":   "so",
				"example/res/":            "",
				"example/res/LICENSE.txt": "MIT",
			},
		},
		{
			name: "top level",
			root: "",
			want: map[string]string{
				"example":         "binary",
				"lib/":            "",
				"lib/module.so":   "so",
				"res/":            "",
				"res/LICENSE.txt": "MIT",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := Write(&buf, dir, tt.root)
			if err != nil {
				t.Fatalf("Write error: %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("entries = %d, want %d", n, len(tt.want))
			}
			if diff := cmp.Diff(tt.want, readZip(t, buf.Bytes())); diff != "" {
				t.Errorf("archive mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	dir := writeTree(t, map[string]string{"example": "binary"})
	out := t.TempDir()
	dst := filepath.Join(out, "nested", "Example_v1.0.0.zip")

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old archive"), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := Create(dst, dir, "example")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if info.Entries != 2 {
		t.Errorf("Entries = %d, want 2", info.Entries)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != info.Size {
		t.Errorf("Size = %d, want %d", info.Size, len(data))
	}
	if got := readZip(t, data)["example/example"]; got != "binary" {
		t.Errorf("example/example = %q, want %q", got, "binary")
	}

	left, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 {
		t.Errorf("directory has %d entries, want only the archive", len(left))
	}
}

func TestCreate_MissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.zip")
	if _, err := Create(dst, filepath.Join(t.TempDir(), "missing"), "x"); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("archive should not exist after a failed Create")
	}
}

func TestCreateTemp(t *testing.T) {
	dir := writeTree(t, map[string]string{"example": "binary"})
	dst := filepath.Join(t.TempDir(), "Example_v1.0.0.zip")

	info, err := CreateTemp(dst, dir, "")
	if err != nil {
		t.Fatalf("CreateTemp error: %v", err)
	}
	if filepath.Dir(info.Path) != filepath.Dir(dst) {
		t.Errorf("Path = %q, want a file beside %q", info.Path, dst)
	}
	if info.Path == dst {
		t.Errorf("Path = %q, want a temporary name", info.Path)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("%s should not exist before the caller renames the archive", dst)
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got := readZip(t, data)["example"]; got != "binary" {
		t.Errorf("example = %q, want %q", got, "binary")
	}
}
