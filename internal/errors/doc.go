// Package errors provides classified, actionable build errors for pyfreeze.
//
// Every failure of a build run is surfaced as a *BuildError carrying:
//   - a stable code (e.g. "E160") registered in this package
//   - a Kind that classifies the failure (config, metadata, preprocess,
//     compile, packaging)
//   - the stage that was running when the failure happened
//   - the field and path for configuration problems
//   - the toolchain exit code and captured log lines for compile problems
//
// # Error Kinds
//
//   - config: invalid or missing static configuration
//   - metadata: project manifest missing or unparsable
//   - preprocess: source preparation or a preprocessing hook failed
//   - compile: the external toolchain exited non-zero or was terminated
//   - packaging: the final output could not be assembled
//
// # Usage
//
//	err := errors.New("E101").
//	    WithField("icon_path", "res/icon.ico").
//	    WithSuggestion("Fix the path or remove icon_path from pyfreeze.json")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Referenced file does not exist
//	//
//	//   icon_path = res/icon.ico
//	//
//	//   Hint: Fix the path or remove icon_path from pyfreeze.json
//
// The CLI maps kinds to process exit codes with ExitCode.
package errors
