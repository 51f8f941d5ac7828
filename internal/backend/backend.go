package backend

import (
	"context"

	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/metadata"
)

// Backend implements the compile lifecycle for one external toolchain.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// PreprocessSource may modify files below sourceDir, the working copy of
	// the project's source directory. It is called exactly once per build.
	PreprocessSource(ctx context.Context, sourceDir string, md *metadata.Metadata) error

	// Compile builds req.SourceDir and returns the path of the produced
	// artifact, which is either an executable file or a directory.
	Compile(ctx context.Context, req CompileRequest) (string, error)

	// Postprocess runs after a successful Compile.
	Postprocess(ctx context.Context, artifact string, cfg *config.Config) error
}

// CompileRequest carries everything Compile needs.
type CompileRequest struct {
	// WorkDir is the scoped working directory of the build.
	WorkDir string

	// SourceDir is the preprocessed copy of the source directory.
	SourceDir string

	// OutputDir is an empty directory inside WorkDir for toolchain output.
	OutputDir string

	// Config is the build configuration.
	Config *config.Config

	// Metadata is the project metadata.
	Metadata *metadata.Metadata

	// Output, if set, receives every captured toolchain output line once.
	// With a streaming Runner such as ExecRunner lines arrive while the
	// toolchain runs; lines a Runner only returns in its result are passed
	// on after the process has exited.
	Output func(line string)
}

// Base implements every hook as a no-op. Embed it to override single hooks.
type Base struct{}

// Name returns "base".
func (Base) Name() string { return "base" }

// PreprocessSource does nothing.
func (Base) PreprocessSource(context.Context, string, *metadata.Metadata) error { return nil }

// Compile returns the source directory itself as the artifact.
func (Base) Compile(_ context.Context, req CompileRequest) (string, error) {
	return req.SourceDir, nil
}

// Postprocess does nothing.
func (Base) Postprocess(context.Context, string, *config.Config) error { return nil }

var _ Backend = Base{}
