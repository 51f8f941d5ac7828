package errors

// Process exit codes returned by the pyfreeze CLI.
const (
	// ExitSuccess indicates the build completed.
	ExitSuccess = 0

	// ExitFailure indicates a failure that is not a classified build error.
	ExitFailure = 1

	// ExitConfig indicates an invalid build configuration.
	ExitConfig = 2

	// ExitMetadata indicates a missing or malformed project manifest.
	ExitMetadata = 3

	// ExitPreprocess indicates source preparation failed.
	ExitPreprocess = 4

	// ExitCompile indicates the toolchain failed or was aborted.
	ExitCompile = 5

	// ExitPackaging indicates the output could not be assembled.
	ExitPackaging = 6
)

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch KindOf(err) {
	case KindConfig:
		return ExitConfig
	case KindMetadata:
		return ExitMetadata
	case KindPreprocess:
		return ExitPreprocess
	case KindCompile:
		return ExitCompile
	case KindPackaging:
		return ExitPackaging
	}
	return ExitFailure
}
