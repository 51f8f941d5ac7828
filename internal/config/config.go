package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/pyfreeze/internal/errors"
	"github.com/vango-dev/pyfreeze/internal/resources"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "pyfreeze.json"

	// HCLConfigFileName is the name of the HCL configuration file.
	HCLConfigFileName = "pyfreeze.hcl"

	// DefaultSrcDir is the default source directory.
	DefaultSrcDir = "src"

	// DefaultMainModule is the default entry point inside the source directory.
	DefaultMainModule = "main.py"

	// DefaultOutput is the default output directory below the project root.
	DefaultOutput = "dist"

	// DefaultPython is the default interpreter used to run Nuitka.
	DefaultPython = "python"

	// DefaultConsoleMode is the default Nuitka console mode.
	DefaultConsoleMode = "hide"
)

// ConsoleModes lists the console modes Nuitka accepts.
var ConsoleModes = []string{"disable", "attach", "force", "hide"}

// Config represents the complete build configuration.
type Config struct {
	// ExeStem is the name of the final executable without suffix.
	ExeStem string `json:"exe_stem"`

	// ProjectRoot is the project root. Relative values are resolved against
	// the configuration file's directory.
	ProjectRoot string `json:"project_root,omitempty"`

	// SrcDir is the source directory copied into the working directory.
	SrcDir string `json:"src_dir,omitempty"`

	// MainModule is the entry point, relative to SrcDir.
	MainModule string `json:"main_module,omitempty"`

	// IconPath is an optional icon file for the executable.
	IconPath string `json:"icon_path,omitempty"`

	// ExtResources is an optional resource manifest listing files to bundle.
	ExtResources string `json:"ext_resources_json,omitempty"`

	// DeleteList contains paths, relative to the dist directory, removed
	// from the final bundle.
	DeleteList []string `json:"delete_list,omitempty"`

	// BuildDir is the parent of the per-build working directories
	// (default: the OS temp directory).
	BuildDir string `json:"build_dir,omitempty"`

	// DistDir is the final output directory (default: dist/<exe_stem>).
	DistDir string `json:"dist_dir,omitempty"`

	// OutputArchive is the final zip archive
	// (default: dist/<display name>_v<version>.zip).
	OutputArchive string `json:"output_archive,omitempty"`

	// Archive enables creation of the zip archive.
	Archive bool `json:"archive"`

	// CompileTimeout limits the toolchain run (e.g., "30m"). Empty means no limit.
	CompileTimeout string `json:"compile_timeout,omitempty"`

	// Nuitka contains the Nuitka backend settings.
	Nuitka NuitkaConfig `json:"nuitka,omitempty"`

	// Publish contains the optional archive upload target.
	Publish PublishConfig `json:"publish,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// timeout is the parsed CompileTimeout.
	timeout time.Duration
}

// NuitkaConfig contains Nuitka backend settings.
type NuitkaConfig struct {
	// Python is the interpreter that has Nuitka installed.
	Python string `json:"python,omitempty"`

	// ConsoleMode is one of ConsoleModes.
	ConsoleMode string `json:"console_mode,omitempty"`

	// Plugins are Nuitka plugins to enable.
	Plugins []string `json:"plugins,omitempty"`

	// NoFollowImports are modules Nuitka must not follow.
	NoFollowImports []string `json:"nofollow_imports,omitempty"`

	// ExtraArgs are appended to the Nuitka command line verbatim.
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// PublishConfig configures uploading of the archive to S3.
type PublishConfig struct {
	// Bucket is the S3 bucket. Publishing is disabled when empty.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to the archive's file name to form the key.
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the AWS region from the environment.
	Region string `json:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		SrcDir:     DefaultSrcDir,
		MainModule: DefaultMainModule,
		Archive:    true,
		Nuitka: NuitkaConfig{
			Python:      DefaultPython,
			ConsoleMode: DefaultConsoleMode,
		},
	}
}

// Option configures a Config created with Create.
type Option func(*Config)

// WithProjectRoot sets the project root.
func WithProjectRoot(dir string) Option {
	return func(c *Config) { c.ProjectRoot = dir }
}

// WithSrcDir sets the source directory.
func WithSrcDir(dir string) Option {
	return func(c *Config) { c.SrcDir = dir }
}

// WithMainModule sets the entry point.
func WithMainModule(path string) Option {
	return func(c *Config) { c.MainModule = path }
}

// WithIcon sets the icon file.
func WithIcon(path string) Option {
	return func(c *Config) { c.IconPath = path }
}

// WithResources sets the resource manifest.
func WithResources(path string) Option {
	return func(c *Config) { c.ExtResources = path }
}

// WithDeleteList sets the paths removed from the bundle.
func WithDeleteList(paths ...string) Option {
	return func(c *Config) { c.DeleteList = append([]string(nil), paths...) }
}

// WithBuildDir sets the parent of the working directories.
func WithBuildDir(dir string) Option {
	return func(c *Config) { c.BuildDir = dir }
}

// WithDistDir sets the output directory.
func WithDistDir(dir string) Option {
	return func(c *Config) { c.DistDir = dir }
}

// WithOutputArchive sets the archive path.
func WithOutputArchive(path string) Option {
	return func(c *Config) { c.OutputArchive = path }
}

// WithArchive enables or disables the zip archive.
func WithArchive(enabled bool) Option {
	return func(c *Config) { c.Archive = enabled }
}

// WithCompileTimeout limits the toolchain run.
func WithCompileTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CompileTimeout = d.String()
		} else {
			c.CompileTimeout = ""
		}
	}
}

// WithNuitka sets the Nuitka backend settings. Empty fields keep their defaults.
func WithNuitka(n NuitkaConfig) Option {
	return func(c *Config) { c.Nuitka = n }
}

// WithPublish sets the upload target.
func WithPublish(p PublishConfig) Option {
	return func(c *Config) { c.Publish = p }
}

// Create builds and validates a Config. A relative project root is resolved
// against the working directory.
func Create(exeStem string, opts ...Option) (*Config, error) {
	cfg := New()
	cfg.ExeStem = exeStem
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.New("E100").Wrap(err)
		}
		cfg.ProjectRoot = wd
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from the specified directory.
// It looks for pyfreeze.json, then pyfreeze.hcl.
func Load(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(jsonPath); err == nil {
		return LoadFile(jsonPath)
	}
	hclPath := filepath.Join(dir, HCLConfigFileName)
	if _, err := os.Stat(hclPath); err == nil {
		return LoadFile(hclPath)
	}
	return nil, errors.New("E103").
		WithDetail("No " + ConfigFileName + " or " + HCLConfigFileName + " found in " + dir).
		WithSuggestion("Run 'pyfreeze init' to create one")
}

// LoadFile reads configuration from the specified file path. Files ending
// in .hcl are decoded as HCL, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E103").
				WithPath(path).
				WithSuggestion("Run 'pyfreeze init' to create one")
		}
		return nil, errors.New("E104").WithPath(path).Wrap(err)
	}

	cfg := New()
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		if err := decodeHCL(path, data, cfg); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E104").
			WithPath(path).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New("E104").WithPath(path).Wrap(err)
	}
	cfg.configPath = abs
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = filepath.Dir(abs)
	} else if !filepath.IsAbs(cfg.ProjectRoot) {
		cfg.ProjectRoot = filepath.Join(filepath.Dir(abs), cfg.ProjectRoot)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies defaults, makes the root absolute and validates.
func (c *Config) finish() error {
	root, err := filepath.Abs(c.ProjectRoot)
	if err != nil {
		return errors.New("E100").WithField("project_root", c.ProjectRoot).Wrap(err)
	}
	c.ProjectRoot = root
	c.applyDefaults()
	return c.Validate()
}

// SaveTo writes the configuration to the specified path as JSON.
func (c *Config) SaveTo(path string) error {
	out := c.Clone()
	if c.configPath != "" && out.ProjectRoot == filepath.Dir(c.configPath) {
		out.ProjectRoot = ""
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.New("E100").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E100").WithPath(path).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.DeleteList = append([]string(nil), c.DeleteList...)
	out.Nuitka.Plugins = append([]string(nil), c.Nuitka.Plugins...)
	out.Nuitka.NoFollowImports = append([]string(nil), c.Nuitka.NoFollowImports...)
	out.Nuitka.ExtraArgs = append([]string(nil), c.Nuitka.ExtraArgs...)
	return &out
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.SrcDir == "" {
		c.SrcDir = DefaultSrcDir
	}
	if c.MainModule == "" {
		c.MainModule = DefaultMainModule
	}
	if c.Nuitka.Python == "" {
		c.Nuitka.Python = DefaultPython
	}
	if c.Nuitka.ConsoleMode == "" {
		c.Nuitka.ConsoleMode = DefaultConsoleMode
	}
}

// Validate checks that the configuration is usable: required settings are
// present and every declared path exists.
func (c *Config) Validate() error {
	stem := strings.TrimSpace(c.ExeStem)
	if stem == "" {
		return errors.New("E102").
			WithField("exe_stem", "").
			WithSuggestion("Set exe_stem to the name of the executable, e.g. \"example\"")
	}
	if stem != c.ExeStem || strings.ContainsAny(stem, `/\`) || stem == "." || stem == ".." {
		return errors.New("E100").
			WithField("exe_stem", c.ExeStem).
			WithDetail("exe_stem must be a plain file name without directories")
	}

	if err := requireDir("project_root", c.ProjectRoot); err != nil {
		return err
	}
	if err := requireDir("src_dir", c.SourcePath()); err != nil {
		return err
	}
	if c.IconPath != "" {
		if err := requireFile("icon_path", c.IconFile()); err != nil {
			return err
		}
	}
	if c.ExtResources != "" {
		if err := requireFile("ext_resources_json", c.ResourcesFile()); err != nil {
			return err
		}
		if _, err := resources.ParseManifest(c.ResourcesFile()); err != nil {
			if be, ok := errors.As(err); ok {
				be.Field = "ext_resources_json"
			}
			return err
		}
	}

	for _, p := range c.DeleteList {
		clean := filepath.Clean(filepath.FromSlash(p))
		if p == "" || filepath.IsAbs(clean) || clean == "." || clean == ".." ||
			strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return errors.New("E100").
				WithField("delete_list", p).
				WithDetail("delete_list entries must be relative paths inside the dist directory")
		}
	}

	if err := c.checkOutputs(); err != nil {
		return err
	}

	c.timeout = 0
	if c.CompileTimeout != "" {
		d, err := time.ParseDuration(c.CompileTimeout)
		if err != nil || d < 0 {
			return errors.New("E100").
				WithField("compile_timeout", c.CompileTimeout).
				WithDetail("compile_timeout must be a duration such as \"30m\"")
		}
		c.timeout = d
	}

	valid := false
	for _, m := range ConsoleModes {
		if c.Nuitka.ConsoleMode == m {
			valid = true
			break
		}
	}
	if !valid {
		return errors.New("E100").
			WithField("nuitka.console_mode", c.Nuitka.ConsoleMode).
			WithDetail("console_mode must be one of " + strings.Join(ConsoleModes, ", "))
	}
	return nil
}

// within reports whether path is parent or below it.
// checkOutputs rejects output locations that overlap the project sources.
// The dist directory is replaced wholesale on publish, so it must neither
// contain the project root or src_dir nor lie inside src_dir.
func (c *Config) checkOutputs() error {
	root, src, dist := c.ProjectRoot, c.SourcePath(), c.DistPath()
	if within(dist, root) || within(dist, src) || within(src, dist) {
		return errors.New("E100").
			WithField("dist_dir", dist).
			WithDetail("dist_dir must not contain the project root or src_dir, nor lie inside src_dir")
	}

	if c.OutputArchive != "" {
		archive := c.resolve(c.OutputArchive)
		if within(archive, root) || within(src, archive) || within(dist, archive) {
			return errors.New("E100").
				WithField("output_archive", archive).
				WithDetail("output_archive must be a file outside src_dir and the dist directory")
		}
	}

	if c.BuildDir != "" {
		build := c.BuildRoot()
		if within(src, build) || within(dist, build) {
			return errors.New("E100").
				WithField("build_dir", c.BuildDir).
				WithDetail("build_dir must not be inside src_dir or the dist directory")
		}
	}
	return nil
}

func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func requireFile(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.New("E101").WithField(field, path).Wrap(err)
	}
	if info.IsDir() {
		return errors.New("E101").
			WithField(field, path).
			WithDetail("expected a file, found a directory")
	}
	return nil
}

func requireDir(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.New("E101").WithField(field, path).Wrap(err)
	}
	if !info.IsDir() {
		return errors.New("E101").
			WithField(field, path).
			WithDetail("expected a directory, found a file")
	}
	return nil
}

// resolve returns path as an absolute path below the project root.
func (c *Config) resolve(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectRoot, filepath.FromSlash(path))
}

// SourcePath returns the absolute path to the source directory.
func (c *Config) SourcePath() string {
	return c.resolve(c.SrcDir)
}

// IconFile returns the absolute path to the icon, or "" if none is set.
func (c *Config) IconFile() string {
	return c.resolve(c.IconPath)
}

// ResourcesFile returns the absolute path to the resource manifest, or "".
func (c *Config) ResourcesFile() string {
	return c.resolve(c.ExtResources)
}

// BuildRoot returns the parent directory for working directories.
func (c *Config) BuildRoot() string {
	if c.BuildDir == "" {
		return os.TempDir()
	}
	return c.resolve(c.BuildDir)
}

// DistPath returns the absolute path to the final output directory.
func (c *Config) DistPath() string {
	if c.DistDir == "" {
		return filepath.Join(c.ProjectRoot, DefaultOutput, c.ExeStem)
	}
	return c.resolve(c.DistDir)
}

// ArchivePath returns the absolute path of the zip archive for the given
// display name and version.
func (c *Config) ArchivePath(displayName, version string) string {
	if c.OutputArchive != "" {
		return c.resolve(c.OutputArchive)
	}
	return filepath.Join(c.ProjectRoot, DefaultOutput, displayName+"_v"+version+".zip")
}

// Timeout returns the compile timeout, 0 for none.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, HCLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E103").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'pyfreeze init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
