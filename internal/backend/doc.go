// Package backend defines the lifecycle hooks a build drives and the
// Nuitka implementation.
//
// A Backend is called by the builder in three steps:
//
//  1. PreprocessSource mutates the working copy of the source tree.
//  2. Compile runs the external toolchain and returns the artifact path.
//  3. Postprocess inspects or adjusts the artifact before it is staged.
//
// Projects customize a build by embedding Base or *Nuitka in their own type
// and overriding the hooks they need:
//
//	type project struct {
//	    *backend.Nuitka
//	}
//
//	func (p project) PreprocessSource(ctx context.Context, dir string, md *metadata.Metadata) error {
//	    return backend.StampVersion(filepath.Join(dir, "app.py"), md.Version)
//	}
//
// Subprocesses go through a Runner, so Compile can be tested with a fake.
package backend
