// Package config provides the static build configuration of a pyfreeze
// project.
//
// The configuration is stored in pyfreeze.json (or pyfreeze.hcl) next to
// pyproject.toml. Every relative path is resolved against the project root,
// which defaults to the directory holding the configuration file.
//
// # Configuration File Structure
//
//	{
//	  "exe_stem": "example",
//	  "src_dir": "src",
//	  "main_module": "main.py",
//	  "icon_path": "res/icon.ico",
//	  "ext_resources_json": "res/ext_resources.json",
//	  "delete_list": ["qt6webengine.dll"],
//	  "compile_timeout": "30m",
//	  "nuitka": {
//	    "python": "python3",
//	    "console_mode": "hide",
//	    "plugins": ["pyside6"],
//	    "extra_args": ["--lto=yes"]
//	  },
//	  "publish": {
//	    "bucket": "releases",
//	    "prefix": "example/"
//	  }
//	}
//
// The same settings in HCL:
//
//	exe_stem  = "example"
//	icon_path = "res/icon.ico"
//
//	nuitka {
//	  console_mode = "hide"
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or in code:
//
//	cfg, err := config.Create("example",
//	    config.WithProjectRoot("."),
//	    config.WithIcon("res/icon.ico"),
//	)
//
// A Config returned by Load, LoadFile or Create has been validated: every
// path it declares exists. It must not be modified afterwards; the builder
// works on its own copy.
package config
