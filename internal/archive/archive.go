// Package archive writes zip archives of directory trees.
package archive

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Info describes a written archive.
type Info struct {
	// Path is the archive file.
	Path string

	// Entries is the number of files and directories stored.
	Entries int

	// Size is the size of the archive in bytes.
	Size int64
}

// Write writes dir as a zip archive to w. Every entry is stored below root
// (e.g. "example/example.exe"); an empty root stores entries at the top
// level. Entries are written in lexical order.
func Write(w io.Writer, dir, root string) (int, error) {
	zw := zip.NewWriter(w)
	entries := 0

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." && root == "" {
			return nil
		}

		name := path.Join(root, filepath.ToSlash(rel))
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name

		if d.IsDir() {
			hdr.Name += "/"
			hdr.Method = zip.Store
			if _, err := zw.CreateHeader(hdr); err != nil {
				return err
			}
			entries++
			return nil
		}
		if !info.Mode().IsRegular() {
			// Only regular files are stored.
			return nil
		}

		hdr.Method = zip.Deflate
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, f)
		f.Close()
		if err != nil {
			return err
		}
		entries++
		return nil
	})
	if err != nil {
		zw.Close()
		return entries, err
	}
	return entries, zw.Close()
}

// Create writes dir as a zip archive to the file at dst, replacing any
// existing file. dst is never left half-written.
func Create(dst, dir, root string) (*Info, error) {
	info, err := CreateTemp(dst, dir, root)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(info.Path, dst); err != nil {
		os.Remove(info.Path)
		return nil, err
	}
	info.Path = dst
	return info, nil
}

// CreateTemp writes dir as a zip archive to a new temporary file in the
// directory of dst and returns it in Info.Path. The caller renames it to
// dst or removes it; dst itself is not touched.
func CreateTemp(dst, dir, root string) (*Info, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Info, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	entries, err := Write(tmp, dir, root)
	if err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	st, err := tmp.Stat()
	if err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	return &Info{Path: tmp.Name(), Entries: entries, Size: st.Size()}, nil
}
