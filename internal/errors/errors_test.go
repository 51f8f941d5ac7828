package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantMsg  string
		wantKind Kind
	}{
		{
			name:     "config error",
			code:     "E101",
			wantMsg:  "Referenced file does not exist",
			wantKind: KindConfig,
		},
		{
			name:     "metadata error",
			code:     "E123",
			wantMsg:  "Invalid project version",
			wantKind: KindMetadata,
		},
		{
			name:     "compile error",
			code:     "E160",
			wantMsg:  "Toolchain exited with an error",
			wantKind: KindCompile,
		},
		{
			name:     "unknown error code",
			code:     "E999",
			wantMsg:  "Unknown error",
			wantKind: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", err.Kind, tt.wantKind)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(KindPackaging, "file %q not found", "app.exe")
	if err.Message != `file "app.exe" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file "app.exe" not found`)
	}
	if err.Kind != KindPackaging {
		t.Errorf("Kind = %q, want %q", err.Kind, KindPackaging)
	}
}

func TestBuildError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *BuildError
		want string
	}{
		{
			name: "code only",
			err:  New("E140"),
			want: "E140: Source preparation failed",
		},
		{
			name: "field and path",
			err:  New("E101").WithField("icon_path", "res/icon.ico"),
			want: `E101: Referenced file does not exist: icon_path = "res/icon.ico"`,
		},
		{
			name: "exit code and detail",
			err:  New("E160").WithExitCode(1).WithDetail("toolchain missing"),
			want: "E160: Toolchain exited with an error (exit code 1): toolchain missing",
		},
		{
			name: "wrapped without detail",
			err:  New("E181").Wrap(fmt.Errorf("disk full")),
			want: "E181: Output could not be assembled: disk full",
		},
		{
			name: "no code",
			err:  &BuildError{Message: "test error"},
			want: "test error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildError_Wrap(t *testing.T) {
	inner := fmt.Errorf("permission denied")
	outer := New("E181").Wrap(inner)

	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should find wrapped error")
	}
}

func TestBuildError_WithLogCopies(t *testing.T) {
	lines := []string{"a", "b"}
	err := New("E160").WithLog(lines)
	lines[0] = "changed"
	if err.Log[0] != "a" {
		t.Errorf("Log[0] = %q, want %q", err.Log[0], "a")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E180") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	be := New("E160")
	if FromError(be, "E180") != be {
		t.Error("FromError should return BuildError as-is")
	}

	wrapped := fmt.Errorf("hook: %w", be)
	if FromError(wrapped, "E180") != be {
		t.Error("FromError should find BuildError in chain")
	}

	plain := stderrors.New("boom")
	result := FromError(plain, "E180")
	if result.Wrapped != plain {
		t.Error("Standard error should be wrapped")
	}
	if result.Kind != KindPackaging {
		t.Errorf("Kind = %q, want %q", result.Kind, KindPackaging)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(stderrors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
	err := fmt.Errorf("stage: %w", New("E120"))
	if got := KindOf(err); got != KindMetadata {
		t.Errorf("KindOf = %q, want %q", got, KindMetadata)
	}
	if !Is(err, KindMetadata) {
		t.Error("Is(err, KindMetadata) should be true")
	}
	if Is(nil, KindMetadata) {
		t.Error("Is(nil, ...) should be false")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{stderrors.New("plain"), ExitFailure},
		{New("E101"), ExitConfig},
		{New("E122"), ExitMetadata},
		{New("E141"), ExitPreprocess},
		{New("E161"), ExitCompile},
		{New("E182"), ExitPackaging},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	if KindCompile.String() != "CompileError" {
		t.Errorf("String() = %q, want %q", KindCompile.String(), "CompileError")
	}
	if Kind("").String() != "Error" {
		t.Errorf("String() = %q, want %q", Kind("").String(), "Error")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	log := make([]string, 30)
	for i := range log {
		log[i] = fmt.Sprintf("line %d", i)
	}
	err := New("E160").
		WithStage("compiling").
		WithExitCode(2).
		WithLog(log).
		WithSuggestion("Install Nuitka into the project interpreter")

	formatted := err.Format()

	for _, want := range []string{
		"CompileError",
		"E160",
		"Toolchain exited with an error",
		"[compiling]",
		"toolchain exit code 2",
		"... 10 earlier lines",
		"line 29",
		"Hint:",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format should contain %q:\n%s", want, formatted)
		}
	}
	if strings.Contains(formatted, "line 9\n") {
		t.Error("Format should only show the log tail")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E101").WithField("icon_path", "icon.ico").WithStage("validating")
	want := `ConfigError [validating]: E101: Referenced file does not exist: icon_path = "icon.ico"`
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, New("E120").WithPath("/p/pyproject.toml"))
	if !strings.Contains(buf.String(), "MetadataError") {
		t.Errorf("PrintError output = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("PrintError output = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Error("GetAllCodes() should return codes")
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Kind == "" {
			t.Errorf("code %s has no kind", code)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Kind:    KindCompile,
		Message: "Custom test error",
	})
	defer delete(registry, "E999")

	err := New("E999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	got = wrapText("", 10)
	if len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
