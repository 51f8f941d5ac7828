package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/vango-dev/pyfreeze/internal/archive"
	"github.com/vango-dev/pyfreeze/internal/errors"
)

// publish assembles the output in a staging directory beside the dist
// directory and swaps it into place. The archive is renamed into place
// right after the swap; if that fails the previous dist is restored.
func (r *run) publish(ctx context.Context) error {
	dist := r.cfg.DistPath()
	parent := filepath.Dir(dist)
	base := filepath.Base(dist)
	id := r.result.BuildID

	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.New("E181").WithPath(parent).Wrap(err)
	}
	staging := filepath.Join(parent, "."+base+".staging-"+id)
	if err := os.Mkdir(staging, 0755); err != nil {
		return errors.New("E181").WithPath(staging).Wrap(err)
	}
	defer os.RemoveAll(staging)

	exe, err := r.stageArtifact(staging)
	if err != nil {
		return errors.New("E181").WithPath(r.artifact).Wrap(err)
	}

	for _, res := range r.resources {
		dst := filepath.Join(staging, filepath.FromSlash(res.Dest))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return errors.New("E181").WithPath(dst).Wrap(err)
		}
		if err := copyFile(res.Source, dst); err != nil {
			return errors.New("E181").WithPath(res.Source).Wrap(err)
		}
		r.logger.Debug("copied resource", "src", res.Source, "dest", res.Dest)
	}
	if n := len(r.resources); n > 0 {
		r.logger.Info("copied resources", "count", n)
	}

	for _, p := range r.cfg.DeleteList {
		target := filepath.Join(staging, filepath.FromSlash(p))
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			r.logger.Warn("delete_list entry not found", "path", p)
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return errors.New("E181").WithPath(target).Wrap(err)
		}
		r.logger.Debug("deleted unused file", "path", p)
	}

	size, err := dirSize(staging)
	if err != nil {
		return errors.New("E181").WithPath(staging).Wrap(err)
	}

	var archivePath, archiveTmp string
	if r.cfg.Archive {
		archivePath = r.cfg.ArchivePath(r.md.DisplayName, r.md.Version)
		info, err := archive.CreateTemp(archivePath, staging, base)
		if err != nil {
			return errors.New("E182").WithPath(archivePath).Wrap(err)
		}
		archiveTmp = info.Path
		defer os.Remove(archiveTmp)
		r.result.ArchiveSize = info.Size
		r.logger.Info("created archive", "entries", info.Entries, "size", info.Size)
	}

	if err := ctx.Err(); err != nil {
		return errors.New("E181").WithDetail("the build was cancelled").Wrap(err)
	}

	sw, err := swapDir(staging, dist, filepath.Join(parent, "."+base+".backup-"+id))
	if err != nil {
		return errors.New("E181").WithPath(dist).Wrap(err)
	}
	if archiveTmp != "" {
		if err := os.Rename(archiveTmp, archivePath); err != nil {
			if rerr := sw.rollback(); rerr != nil {
				r.logger.Error("failed to restore previous dist directory", "path", dist, "error", rerr)
			}
			return errors.New("E182").WithPath(archivePath).Wrap(err)
		}
		r.result.Archive = archivePath
	}
	if err := sw.commit(); err != nil {
		r.logger.Warn("failed to remove previous dist directory", "path", sw.backup, "error", err)
	}

	r.result.DistDir = dist
	r.result.Size = size
	r.result.Resources = len(r.resources)
	if exe != "" {
		r.result.Executable = filepath.Join(dist, exe)
	}
	r.b.options.Recorder.ObserveOutput(size, len(r.resources))
	r.logger.Info("published", "dist", dist, "archive", r.result.Archive)
	return nil
}

// stageArtifact copies the artifact into staging and returns the
// executable's name relative to staging, or "" if none was found. A file
// artifact is renamed to the executable stem; the contents of a directory
// artifact are copied as they are.
func (r *run) stageArtifact(staging string) (string, error) {
	info, err := os.Stat(r.artifact)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		name := r.cfg.ExeStem + filepath.Ext(r.artifact)
		if err := copyFile(r.artifact, filepath.Join(staging, name)); err != nil {
			return "", err
		}
		return name, nil
	}

	if err := copyTree(r.artifact, staging); err != nil {
		return "", err
	}
	for _, name := range []string{r.cfg.ExeStem + ".exe", r.cfg.ExeStem} {
		if fi, err := os.Stat(filepath.Join(staging, name)); err == nil && !fi.IsDir() {
			return name, nil
		}
	}
	return "", nil
}

// swap is a directory replacement that can still be undone.
type swap struct {
	dst    string
	backup string
	hadOld bool
}

// swapDir moves dst aside to backup and renames staging to dst.
func swapDir(staging, dst, backup string) (*swap, error) {
	s := &swap{dst: dst, backup: backup}
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Rename(dst, backup); err != nil {
			return nil, err
		}
		s.hadOld = true
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.Rename(staging, dst); err != nil {
		if s.hadOld {
			if rerr := os.Rename(backup, dst); rerr != nil {
				return nil, stderrors.Join(err, rerr)
			}
		}
		return nil, err
	}
	return s, nil
}

// rollback removes the new dst and restores the previous one.
func (s *swap) rollback() error {
	if err := os.RemoveAll(s.dst); err != nil {
		return err
	}
	if s.hadOld {
		return os.Rename(s.backup, s.dst)
	}
	return nil
}

// commit discards the previous dst.
func (s *swap) commit() error {
	if s.hadOld {
		return os.RemoveAll(s.backup)
	}
	return nil
}
