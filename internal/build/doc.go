// Package build drives a single pyfreeze build from configuration to the
// published dist directory.
//
// A build runs through these states:
//
//	Idle → Validating → Preprocessing → Compiling → Postprocessing → Done
//	                                                              ↘ Failed
//
// Validating checks the configuration, reads pyproject.toml and expands
// the resource manifest. Preprocessing copies the source directory into a
// fresh working directory and calls the backend's PreprocessSource hook.
// Compiling runs the backend's toolchain. Postprocessing calls the
// backend's Postprocess hook, stages the artifact with its resources,
// writes the archive and swaps the result into the dist directory.
//
// # Usage
//
//	builder := build.New(cfg, backend.NewNuitka(cfg.Nuitka), build.Options{
//	    Logger: slog.Default(),
//	})
//	result, err := builder.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Built in %s\n", result.Duration)
//	fmt.Printf("Dist: %s\n", result.DistDir)
//	fmt.Printf("Archive: %s\n", result.Archive)
//
// # Output Structure
//
//	dist/
//	├── example/                  # dist directory
//	│   ├── example(.exe)         # executable
//	│   ├── ...                   # toolchain output
//	│   └── res/                  # resources from ext_resources_json
//	└── Example App_v1.0.0.zip    # archive of example/
//
// The dist directory and the archive are replaced only after every stage
// succeeded. A failed build leaves both exactly as they were, and the
// working directory is removed on every exit path.
package build
