package backend

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/ctxlog"
	"github.com/vango-dev/pyfreeze/internal/errors"
)

// DefaultNuitkaArgs are passed to Nuitka before any other argument.
var DefaultNuitkaArgs = []string{"--standalone", "--remove-output", "--assume-yes-for-downloads"}

// stderrTail is the number of stderr lines quoted in a compile error.
const stderrTail = 5

// Nuitka compiles the project with Nuitka in standalone mode. The artifact
// is the "<main module>.dist" directory Nuitka creates in the output dir.
type Nuitka struct {
	Base

	// Python is the interpreter that runs "-m nuitka".
	Python string

	// ConsoleMode is passed as --windows-console-mode.
	ConsoleMode string

	// Plugins are enabled with --enable-plugin.
	Plugins []string

	// NoFollowImports are passed as --nofollow-import-to.
	NoFollowImports []string

	// ExtraArgs are appended verbatim after the generated arguments.
	ExtraArgs []string

	// AdditionalArgs, if set, returns arguments appended after ExtraArgs.
	AdditionalArgs func(req CompileRequest) []string

	// Runner runs the Nuitka process (default ExecRunner).
	Runner Runner

	// GOOS selects the executable suffix and icon flag (default runtime.GOOS).
	GOOS string
}

// NewNuitka creates a Nuitka backend from configuration.
func NewNuitka(cfg config.NuitkaConfig) *Nuitka {
	return &Nuitka{
		Python:          cfg.Python,
		ConsoleMode:     cfg.ConsoleMode,
		Plugins:         append([]string(nil), cfg.Plugins...),
		NoFollowImports: append([]string(nil), cfg.NoFollowImports...),
		ExtraArgs:       append([]string(nil), cfg.ExtraArgs...),
	}
}

// Name returns "nuitka".
func (n *Nuitka) Name() string { return "nuitka" }

func (n *Nuitka) goos() string {
	if n.GOOS != "" {
		return n.GOOS
	}
	return runtime.GOOS
}

// ExeName returns the file name of the executable for stem.
func (n *Nuitka) ExeName(stem string) string {
	if n.goos() == "windows" {
		return stem + ".exe"
	}
	return stem
}

// Args returns the Nuitka arguments for req, without the interpreter.
func (n *Nuitka) Args(req CompileRequest) []string {
	cfg, md := req.Config, req.Metadata

	args := []string{"-m", "nuitka"}
	args = append(args, DefaultNuitkaArgs...)
	args = append(args, "--output-dir="+req.OutputDir)
	for _, p := range n.Plugins {
		args = append(args, "--enable-plugin="+p)
	}
	for _, m := range n.NoFollowImports {
		args = append(args, "--nofollow-import-to="+m)
	}
	if n.ConsoleMode != "" {
		args = append(args, "--windows-console-mode="+n.ConsoleMode)
	}
	if md != nil {
		if md.Author != "" {
			args = append(args, "--company-name="+md.Author)
		}
		if md.License != "" {
			args = append(args, "--copyright="+md.License)
		}
		args = append(args,
			"--product-name="+md.DisplayName,
			"--file-description="+md.DisplayName,
			"--file-version="+md.FileVersion,
			"--product-version="+md.FileVersion,
		)
	}
	args = append(args, "--output-filename="+n.ExeName(cfg.ExeStem))

	if icon := cfg.IconFile(); icon != "" {
		switch n.goos() {
		case "windows":
			args = append(args, "--windows-icon-from-ico="+icon)
		case "darwin":
			args = append(args, "--macos-app-icon="+icon)
		default:
			args = append(args, "--linux-icon="+icon)
		}
	}

	args = append(args, n.ExtraArgs...)
	if n.AdditionalArgs != nil {
		args = append(args, n.AdditionalArgs(req)...)
	}
	return append(args, mainModule(req))
}

func mainModule(req CompileRequest) string {
	return filepath.Join(req.SourceDir, filepath.FromSlash(req.Config.MainModule))
}

// Compile runs Nuitka and returns the distribution folder.
func (n *Nuitka) Compile(ctx context.Context, req CompileRequest) (string, error) {
	logger := ctxlog.FromContext(ctx)

	python := n.Python
	if python == "" {
		python = config.DefaultPython
	}
	runner := n.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	cmd := Command{Name: python, Args: n.Args(req), Dir: req.WorkDir}
	delivered := 0
	if req.Output != nil {
		cmd.OnLine = func(_, line string) {
			delivered++
			req.Output(line)
		}
	}
	logger.Info("running nuitka", "cmd", python+" "+strings.Join(cmd.Args, " "))

	res, err := runner.Run(ctx, cmd)
	var log []string
	if res != nil {
		log = res.Log
		if req.Output != nil && delivered < len(log) {
			for _, line := range log[delivered:] {
				req.Output(line)
			}
		}
	}
	if err != nil {
		switch {
		case ctx.Err() != nil:
			detail := "the build was cancelled"
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				detail = "compile_timeout exceeded"
			}
			return "", errors.New("E161").
				Abort().
				WithDetail(detail).
				WithLog(log).
				Wrap(err)
		case stderrors.Is(err, ErrStart):
			return "", errors.New("E162").
				WithPath(python).
				WithSuggestion("Install Nuitka with 'python -m pip install nuitka' or set nuitka.python").
				Wrap(err)
		default:
			return "", errors.New("E160").WithLog(log).Wrap(err)
		}
	}

	if res.ExitCode != 0 {
		tail := res.Stderr
		if len(tail) == 0 {
			tail = res.Log
		}
		if len(tail) > stderrTail {
			tail = tail[len(tail)-stderrTail:]
		}
		return "", errors.New("E160").
			WithExitCode(res.ExitCode).
			WithLog(log).
			WithDetail(strings.Join(tail, "\n"))
	}

	stem := strings.TrimSuffix(filepath.Base(req.Config.MainModule), filepath.Ext(req.Config.MainModule))
	dist := filepath.Join(req.OutputDir, stem+".dist")
	if info, err := os.Stat(dist); err != nil || !info.IsDir() {
		return "", errors.New("E163").
			WithPath(dist).
			WithLog(log).
			WithDetail("Nuitka did not create a distribution folder")
	}
	return dist, nil
}

// Postprocess checks that the executable exists in the distribution folder.
func (n *Nuitka) Postprocess(_ context.Context, artifact string, cfg *config.Config) error {
	exe := filepath.Join(artifact, n.ExeName(cfg.ExeStem))
	info, err := os.Stat(exe)
	if err != nil {
		return errors.New("E180").WithPath(exe).Wrap(err)
	}
	if info.IsDir() {
		return errors.New("E180").WithPath(exe).WithDetail("executable is a directory")
	}
	return nil
}

var _ Backend = (*Nuitka)(nil)
