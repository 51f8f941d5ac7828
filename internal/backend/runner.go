package backend

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/pyfreeze/internal/ctxlog"
)

// Command describes a subprocess invocation.
type Command struct {
	// Name is the program to run.
	Name string

	// Args are the program arguments.
	Args []string

	// Dir is the working directory.
	Dir string

	// Env is appended to the current environment.
	Env []string

	// OnLine, if set, is called with each output line as it is read.
	// Calls are serialized and follow the order of RunResult.Log.
	OnLine func(stream, line string)
}

// RunResult is the outcome of a finished subprocess.
type RunResult struct {
	// ExitCode is the process exit code, or -1 if it was killed.
	ExitCode int

	// Stdout and Stderr hold the captured output lines of each stream.
	Stdout []string
	Stderr []string

	// Log holds the lines of both streams in arrival order.
	Log []string
}

// Runner runs subprocesses.
//
// Run returns a nil error when the process ran to completion, whatever its
// exit code. It returns an error when the process could not be started or
// when ctx ended before the process exited; in the latter case the returned
// result still carries the output captured so far.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*RunResult, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (*RunResult, error)

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*RunResult, error) {
	return f(ctx, cmd)
}

// ErrStart wraps errors from starting a subprocess.
var ErrStart = stderrors.New("process could not be started")

// ExecRunner runs commands with os/exec. Both output streams are read
// concurrently and every line is logged at debug level. On cancellation
// the whole process tree is terminated.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for the output pipes after the
	// process was killed (default 5s).
	WaitDelay time.Duration
}

const maxLineSize = 1 << 20

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx).With("cmd", c.Name)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	group := newProcessGroup(cmd)
	defer group.close()
	cmd.Cancel = func() error { return group.kill(cmd) }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, stderrors.Join(ErrStart, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, stderrors.Join(ErrStart, err)
	}

	logger.Debug("starting process", "args", c.Args, "dir", c.Dir)
	if err := cmd.Start(); err != nil {
		return nil, stderrors.Join(ErrStart, err)
	}
	group.started(cmd)

	res := &RunResult{}
	var mu sync.Mutex
	capture := func(stream string, rd io.Reader, dst *[]string) error {
		sc := bufio.NewScanner(rd)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			line := sc.Text()
			logger.Debug(line, slog.String("stream", stream))
			mu.Lock()
			*dst = append(*dst, line)
			res.Log = append(res.Log, line)
			if c.OnLine != nil {
				c.OnLine(stream, line)
			}
			mu.Unlock()
		}
		return sc.Err()
	}

	var g errgroup.Group
	g.Go(func() error { return capture("stdout", stdout, &res.Stdout) })
	g.Go(func() error { return capture("stderr", stderr, &res.Stderr) })
	readErr := g.Wait()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case stderrors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, waitErr
	}
	if readErr != nil {
		logger.Warn("output capture failed", "error", readErr)
	}
	logger.Debug("process exited", "exit_code", res.ExitCode)
	return res, nil
}

var _ Runner = ExecRunner{}
