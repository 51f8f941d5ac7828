package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/pyfreeze/internal/backend"
	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/ctxlog"
	"github.com/vango-dev/pyfreeze/internal/errors"
	"github.com/vango-dev/pyfreeze/internal/metadata"
	"github.com/vango-dev/pyfreeze/internal/resources"
	"github.com/vango-dev/pyfreeze/internal/telemetry"
)

// ErrBusy is returned by Run while another Run of the same Builder is in
// progress.
var ErrBusy = stderrors.New("build: builder is already running")

// Result contains the build output.
type Result struct {
	// State is the final state, StateDone or StateFailed.
	State State

	// BuildID identifies the run in logs, spans and temporary file names.
	BuildID string

	// Duration is how long the build took.
	Duration time.Duration

	// Executable is the path of the executable in DistDir, if one was found.
	Executable string

	// DistDir is the published dist directory.
	DistDir string

	// Size is the total size of DistDir in bytes.
	Size int64

	// Archive is the path of the zip archive, empty if archiving is disabled.
	Archive string

	// ArchiveSize is the size of the archive in bytes.
	ArchiveSize int64

	// Resources is the number of resource files bundled.
	Resources int

	// Metadata is the project metadata.
	Metadata *metadata.Metadata

	// Log holds the captured toolchain output, also on failure.
	Log []string
}

// Options configures the builder.
type Options struct {
	// Logger receives all build logs (default: discard).
	Logger *slog.Logger

	// Recorder records metrics and spans. Nil disables telemetry.
	Recorder *telemetry.Recorder

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder runs builds of one project with one backend. It is safe for
// concurrent use, but only one Run executes at a time.
type Builder struct {
	config  *config.Config
	backend backend.Backend
	options Options

	running atomic.Bool
	state   atomic.Int32
}

// New creates a new builder. The configuration is copied; a nil backend
// means backend.Base.
func New(cfg *config.Config, be backend.Backend, options Options) *Builder {
	if cfg == nil {
		cfg = config.New()
	}
	if be == nil {
		be = backend.Base{}
	}
	if options.Logger == nil {
		options.Logger = ctxlog.Discard()
	}
	return &Builder{
		config:  cfg.Clone(),
		backend: be,
		options: options,
	}
}

// State returns the current state.
func (b *Builder) State() State {
	return State(b.state.Load())
}

func (b *Builder) setState(s State) {
	b.state.Store(int32(s))
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// Run performs one build. The returned Result is non-nil unless err is
// ErrBusy; on failure it carries the metadata and toolchain log collected
// so far. Errors are *errors.BuildError values classified by kind.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	if !b.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer b.running.Store(false)

	start := time.Now()
	r := &run{
		b:      b,
		cfg:    b.config,
		result: &Result{BuildID: uuid.NewString()},
	}
	r.logger = b.options.Logger.With("build_id", r.result.BuildID)
	ctx = ctxlog.WithLogger(ctx, r.logger)
	ctx, done := b.options.Recorder.StartBuild(ctx, r.result.BuildID, b.backend.Name())

	err := r.execute(ctx)
	r.result.Duration = time.Since(start)
	if err != nil {
		b.setState(StateFailed)
		r.logger.Error("build failed", "error", err, "duration", r.result.Duration)
	} else {
		b.setState(StateDone)
		r.logger.Info("build completed", "duration", r.result.Duration, "dist", r.result.DistDir)
	}
	r.result.State = b.State()
	done(err)
	return r.result, err
}

// run holds the state of one Run call.
type run struct {
	b      *Builder
	cfg    *config.Config
	logger *slog.Logger
	result *Result

	md        *metadata.Metadata
	resources []resources.Resource
	workDir   string
	sourceDir string
	outputDir string
	artifact  string
}

func (r *run) execute(ctx context.Context) error {
	defer r.cleanup()

	if err := r.stage(ctx, StateValidating, "E100", "Validating configuration...", r.validate); err != nil {
		return err
	}
	if err := r.stage(ctx, StatePreprocessing, "E141", "Preparing source...", r.preprocess); err != nil {
		return err
	}
	if err := r.stage(ctx, StateCompiling, "E160", "Compiling with "+r.b.backend.Name()+"...", r.compile); err != nil {
		return err
	}
	return r.stage(ctx, StatePostprocessing, "E180", "Assembling output...", r.postprocess)
}

// stage runs fn in state. Errors that are not yet classified are wrapped
// under code, and every error is tagged with the stage name.
func (r *run) stage(ctx context.Context, state State, code, step string, fn func(context.Context) error) error {
	r.b.setState(state)
	r.b.progress(step)
	r.logger.Debug("stage started", "stage", state.String())

	ctx, done := r.b.options.Recorder.StartStage(ctx, state.String())
	var err error
	if cerr := ctx.Err(); cerr != nil {
		err = errors.New(code).WithDetail("the build was cancelled").Wrap(cerr)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		be := errors.FromError(err, code)
		if be.Stage == "" {
			be.WithStage(state.String())
		}
		err = be
	}
	done(err)
	return err
}

func (r *run) validate(ctx context.Context) error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}

	md, err := metadata.Load(r.cfg.ProjectRoot)
	if err != nil {
		return err
	}
	r.md = md
	r.result.Metadata = md

	if manifest := r.cfg.ResourcesFile(); manifest != "" {
		res, err := resources.Load(r.cfg.ProjectRoot, manifest)
		if err != nil {
			return err
		}
		r.resources = res
		r.logger.Info("loaded resource manifest", "path", manifest, "files", len(res))
	}

	r.logger.Info("building",
		"name", md.DisplayName,
		"version", md.Version,
		"backend", r.b.backend.Name(),
	)
	return nil
}

func (r *run) preprocess(ctx context.Context) error {
	root := r.cfg.BuildRoot()
	if err := os.MkdirAll(root, 0755); err != nil {
		return errors.New("E140").WithPath(root).Wrap(err)
	}
	dir, err := os.MkdirTemp(root, "pyfreeze-"+r.cfg.ExeStem+"-")
	if err != nil {
		return errors.New("E140").WithPath(root).Wrap(err)
	}
	r.workDir = dir
	r.sourceDir = filepath.Join(dir, "src")
	r.outputDir = filepath.Join(dir, "out")

	if err := os.Mkdir(r.outputDir, 0755); err != nil {
		return errors.New("E140").WithPath(r.outputDir).Wrap(err)
	}

	src := r.cfg.SourcePath()
	r.logger.Info("copying source", "from", src, "to", r.sourceDir)
	if err := copyTree(src, r.sourceDir); err != nil {
		return errors.New("E140").WithPath(src).Wrap(err)
	}

	md := *r.md
	if err := r.b.backend.PreprocessSource(ctx, r.sourceDir, &md); err != nil {
		return errors.FromError(err, "E141")
	}
	return nil
}

func (r *run) compile(ctx context.Context) error {
	cctx := ctx
	if t := r.cfg.Timeout(); t > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	req := backend.CompileRequest{
		WorkDir:   r.workDir,
		SourceDir: r.sourceDir,
		OutputDir: r.outputDir,
		Config:    r.cfg,
		Metadata:  r.md,
		Output: func(line string) {
			r.result.Log = append(r.result.Log, line)
		},
	}

	artifact, err := r.b.backend.Compile(cctx, req)
	if err != nil {
		var be *errors.BuildError
		if _, ok := errors.As(err); !ok && cctx.Err() != nil {
			detail := "the build was cancelled"
			if stderrors.Is(cctx.Err(), context.DeadlineExceeded) {
				detail = "compile_timeout exceeded"
			}
			be = errors.New("E161").Abort().WithDetail(detail).Wrap(err)
		} else {
			be = errors.FromError(err, "E160")
		}
		if len(r.result.Log) == 0 && len(be.Log) > 0 {
			r.result.Log = append([]string(nil), be.Log...)
		}
		return be
	}

	if artifact == "" {
		return errors.New("E163").WithDetail(r.b.backend.Name() + " returned no artifact path")
	}
	if !filepath.IsAbs(artifact) {
		artifact = filepath.Join(r.workDir, artifact)
	}
	if _, err := os.Stat(artifact); err != nil {
		return errors.New("E163").WithPath(artifact).Wrap(err)
	}
	r.artifact = artifact
	r.logger.Info("compiled", "artifact", artifact)
	return nil
}

func (r *run) postprocess(ctx context.Context) error {
	if err := r.b.backend.Postprocess(ctx, r.artifact, r.cfg); err != nil {
		return errors.FromError(err, "E180")
	}
	return r.publish(ctx)
}

// cleanup removes the working directory.
func (r *run) cleanup() {
	if r.workDir == "" {
		return
	}
	if err := os.RemoveAll(r.workDir); err != nil {
		r.logger.Warn("failed to remove working directory", "path", r.workDir, "error", err)
		return
	}
	r.logger.Debug("removed working directory", "path", r.workDir)
}
