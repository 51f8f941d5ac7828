package config

import (
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

// hclFile mirrors Config for HCL decoding. Every attribute is optional so
// that unset values keep the defaults from New.
type hclFile struct {
	ExeStem        string      `hcl:"exe_stem,optional"`
	ProjectRoot    string      `hcl:"project_root,optional"`
	SrcDir         string      `hcl:"src_dir,optional"`
	MainModule     string      `hcl:"main_module,optional"`
	IconPath       string      `hcl:"icon_path,optional"`
	ExtResources   string      `hcl:"ext_resources_json,optional"`
	DeleteList     []string    `hcl:"delete_list,optional"`
	BuildDir       string      `hcl:"build_dir,optional"`
	DistDir        string      `hcl:"dist_dir,optional"`
	OutputArchive  string      `hcl:"output_archive,optional"`
	Archive        *bool       `hcl:"archive,optional"`
	CompileTimeout string      `hcl:"compile_timeout,optional"`
	Nuitka         *hclNuitka  `hcl:"nuitka,block"`
	Publish        *hclPublish `hcl:"publish,block"`
}

type hclNuitka struct {
	Python          string   `hcl:"python,optional"`
	ConsoleMode     string   `hcl:"console_mode,optional"`
	Plugins         []string `hcl:"plugins,optional"`
	NoFollowImports []string `hcl:"nofollow_imports,optional"`
	ExtraArgs       []string `hcl:"extra_args,optional"`
}

type hclPublish struct {
	Bucket string `hcl:"bucket,optional"`
	Prefix string `hcl:"prefix,optional"`
	Region string `hcl:"region,optional"`
}

// decodeHCL decodes an HCL configuration onto cfg.
func decodeHCL(path string, data []byte, cfg *Config) error {
	var f hclFile
	if err := hclsimple.Decode(path, data, nil, &f); err != nil {
		return errors.New("E104").
			WithPath(path).
			WithDetail(err.Error()).
			WithSuggestion("Check the syntax of " + HCLConfigFileName)
	}

	cfg.ExeStem = f.ExeStem
	cfg.ProjectRoot = f.ProjectRoot
	setString(&cfg.SrcDir, f.SrcDir)
	setString(&cfg.MainModule, f.MainModule)
	cfg.IconPath = f.IconPath
	cfg.ExtResources = f.ExtResources
	cfg.DeleteList = f.DeleteList
	cfg.BuildDir = f.BuildDir
	cfg.DistDir = f.DistDir
	cfg.OutputArchive = f.OutputArchive
	if f.Archive != nil {
		cfg.Archive = *f.Archive
	}
	cfg.CompileTimeout = f.CompileTimeout

	if n := f.Nuitka; n != nil {
		setString(&cfg.Nuitka.Python, n.Python)
		setString(&cfg.Nuitka.ConsoleMode, n.ConsoleMode)
		cfg.Nuitka.Plugins = n.Plugins
		cfg.Nuitka.NoFollowImports = n.NoFollowImports
		cfg.Nuitka.ExtraArgs = n.ExtraArgs
	}
	if p := f.Publish; p != nil {
		cfg.Publish = PublishConfig{Bucket: p.Bucket, Prefix: p.Prefix, Region: p.Region}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
