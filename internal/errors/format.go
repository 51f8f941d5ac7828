package errors

import (
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorWhite  = "\033[37m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
	colorYellow = "\033[33m"
)

// logTailLines is how many toolchain output lines Format shows.
const logTailLines = 20

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

// color wraps text in ANSI color codes if colors are enabled.
func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string    { return color(colorRed, text) }
func white(text string) string  { return color(colorWhite, text) }
func cyan(text string) string   { return color(colorCyan, text) }
func gray(text string) string   { return color(colorGray, text) }
func bold(text string) string   { return color(colorBold, text) }
func yellow(text string) string { return color(colorYellow, text) }

// Format returns a multi-line error report for terminal display.
func (e *BuildError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(red(bold(e.Kind.String() + " ")))
	if e.Code != "" {
		b.WriteString(white(bold(e.Code + ": ")))
	}
	b.WriteString(white(e.Message))
	if e.Stage != "" {
		b.WriteString(gray(" [" + e.Stage + "]"))
	}
	b.WriteString("\n\n")

	if e.Field != "" {
		b.WriteString("  ")
		b.WriteString(cyan(e.Field))
		b.WriteString(" = ")
		b.WriteString(e.Path)
		b.WriteString("\n\n")
	} else if e.Path != "" {
		b.WriteString("  ")
		b.WriteString(cyan(e.Path))
		b.WriteString("\n\n")
	}

	if e.ExitCode != 0 || e.Aborted {
		b.WriteString("  ")
		if e.Aborted {
			b.WriteString(yellow("toolchain was terminated"))
		} else {
			b.WriteString(yellow(fmt.Sprintf("toolchain exit code %d", e.ExitCode)))
		}
		b.WriteString("\n\n")
	}

	detail := e.Detail
	if detail == "" && e.Wrapped != nil {
		detail = e.Wrapped.Error()
	}
	if detail != "" {
		for _, line := range wrapText(detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(e.Log) > 0 {
		tail := e.Log
		if len(tail) > logTailLines {
			tail = tail[len(tail)-logTailLines:]
			b.WriteString("  ")
			b.WriteString(gray(fmt.Sprintf("... %d earlier lines", len(e.Log)-logTailLines)))
			b.WriteString("\n")
		}
		for _, line := range tail {
			b.WriteString("  ")
			b.WriteString(gray("│ "))
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(cyan("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n")
	}

	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *BuildError) FormatCompact() string {
	if e.Stage == "" {
		return e.Kind.String() + ": " + e.Error()
	}
	return e.Kind.String() + " [" + e.Stage + "]: " + e.Error()
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

// PrintError writes a formatted error to w.
func PrintError(w io.Writer, err error) {
	if be, ok := As(err); ok {
		fmt.Fprint(w, be.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
