package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a build failure.
type Kind string

const (
	KindConfig     Kind = "config"
	KindMetadata   Kind = "metadata"
	KindPreprocess Kind = "preprocess"
	KindCompile    Kind = "compile"
	KindPackaging  Kind = "packaging"
)

// String returns the error kind name used in reports, e.g. "CompileError".
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindMetadata:
		return "MetadataError"
	case KindPreprocess:
		return "PreprocessError"
	case KindCompile:
		return "CompileError"
	case KindPackaging:
		return "PackagingError"
	}
	return "Error"
}

// BuildError is a classified error raised by one stage of a build run.
type BuildError struct {
	// Code is a unique error identifier (e.g., "E160").
	Code string

	// Kind classifies the failure.
	Kind Kind

	// Stage is the builder stage that failed (e.g., "compiling").
	Stage string

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Field names the configuration or manifest field at fault.
	Field string

	// Path is the filesystem path involved, if any.
	Path string

	// ExitCode is the toolchain exit code for compile errors.
	ExitCode int

	// Aborted is set when the toolchain was terminated before it exited.
	Aborted bool

	// Log holds captured toolchain output lines.
	Log []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
		if e.Path != "" {
			fmt.Fprintf(&b, " = %q", e.Path)
		}
	} else if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BuildError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *BuildError) WithDetail(d string) *BuildError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BuildError) WithSuggestion(s string) *BuildError {
	e.Suggestion = s
	return e
}

// WithField names the offending field and the path it refers to.
func (e *BuildError) WithField(field, path string) *BuildError {
	e.Field = field
	e.Path = path
	return e
}

// WithPath records the filesystem path involved.
func (e *BuildError) WithPath(path string) *BuildError {
	e.Path = path
	return e
}

// WithStage records the stage that failed.
func (e *BuildError) WithStage(stage string) *BuildError {
	e.Stage = stage
	return e
}

// WithExitCode records the toolchain exit code.
func (e *BuildError) WithExitCode(code int) *BuildError {
	e.ExitCode = code
	return e
}

// WithLog attaches captured toolchain output.
func (e *BuildError) WithLog(lines []string) *BuildError {
	e.Log = append([]string(nil), lines...)
	return e
}

// Abort marks the error as caused by a terminated toolchain.
func (e *BuildError) Abort() *BuildError {
	e.Aborted = true
	return e
}

// Wrap wraps another error.
func (e *BuildError) Wrap(err error) *BuildError {
	e.Wrapped = err
	return e
}

// New creates a BuildError from a registered error code.
func New(code string) *BuildError {
	template, ok := registry[code]
	if !ok {
		return &BuildError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &BuildError{
		Code:    code,
		Kind:    template.Kind,
		Message: template.Message,
		Detail:  template.Detail,
	}
}

// Newf creates a new BuildError with a formatted message (no code).
func Newf(kind Kind, format string, args ...any) *BuildError {
	return &BuildError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// FromError returns err as a BuildError. An error that already carries a
// BuildError in its chain is returned as that BuildError; anything else is
// wrapped under code.
func FromError(err error, code string) *BuildError {
	if err == nil {
		return nil
	}
	var be *BuildError
	if stderrors.As(err, &be) {
		return be
	}
	return New(code).Wrap(err)
}

// As finds the first BuildError in err's chain.
func As(err error) (*BuildError, bool) {
	var be *BuildError
	ok := stderrors.As(err, &be)
	return be, ok
}

// KindOf returns the kind of the first BuildError in err's chain, or the
// empty Kind if there is none.
func KindOf(err error) Kind {
	if be, ok := As(err); ok {
		return be.Kind
	}
	return ""
}

// Is reports whether err is a BuildError of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
