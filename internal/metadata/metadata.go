// Package metadata extracts the build metadata of a Python project from its
// pyproject.toml.
//
// Only the PEP 621 [project] table is consulted:
//
//	[project]
//	name = "example"                 # required
//	version = "1.0.0-alpha-1"        # required, semantic version
//	description = "Example App"      # optional, becomes the display name
//	authors = [{ name = "Jane" }]    # optional, first author is used
//	license = { file = "LICENSE" }   # optional, also { text = ".." } or "MIT"
//
// A Metadata value is created once per build and never modified afterwards.
package metadata

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

// ManifestFileName is the name of the project manifest.
const ManifestFileName = "pyproject.toml"

// Metadata describes the project being built.
type Metadata struct {
	// Name is the distribution name ([project].name).
	Name string `json:"name"`

	// DisplayName is the human-readable name: the description if present,
	// otherwise the name.
	DisplayName string `json:"display_name"`

	// Description is [project].description, possibly empty.
	Description string `json:"description,omitempty"`

	// Version is the project version as written in the manifest.
	Version string `json:"version"`

	// Prerelease is the prerelease part of Version without the leading "-".
	Prerelease string `json:"prerelease,omitempty"`

	// FileVersion is the four-part numeric version for executable headers.
	FileVersion string `json:"file_version"`

	// Author is the name of the first listed author, possibly empty.
	Author string `json:"author,omitempty"`

	// License is a copyright notice or license name, possibly empty.
	License string `json:"license,omitempty"`
}

type pyproject struct {
	Project *projectTable `toml:"project"`
}

type projectTable struct {
	Name        *string  `toml:"name"`
	Version     any      `toml:"version"`
	Description string   `toml:"description"`
	Authors     []person `toml:"authors"`
	License     any      `toml:"license"`
}

type person struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// Load reads and parses <projectRoot>/pyproject.toml.
func Load(projectRoot string) (*Metadata, error) {
	path := filepath.Join(projectRoot, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E120").
				WithPath(path).
				WithSuggestion("Run pyfreeze from the project root or pass --project")
		}
		return nil, errors.New("E121").WithPath(path).Wrap(err)
	}
	md, err := Parse(data, projectRoot)
	if err != nil {
		if be, ok := errors.As(err); ok && be.Path == "" && be.Field == "" {
			be.Path = path
		}
		return nil, err
	}
	return md, nil
}

// Parse extracts metadata from manifest contents. projectRoot resolves a
// license file reference; it is not used otherwise.
func Parse(data []byte, projectRoot string) (*Metadata, error) {
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("E121").WithDetail(err.Error())
	}
	if doc.Project == nil {
		return nil, errors.New("E122").WithField("project", "").
			WithSuggestion("Add a [project] table to pyproject.toml")
	}
	p := doc.Project

	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		return nil, errors.New("E122").WithField("project.name", "")
	}
	if p.Version == nil {
		return nil, errors.New("E122").WithField("project.version", "").
			WithSuggestion("Dynamic versions are not supported; set project.version explicitly")
	}
	version, ok := p.Version.(string)
	if !ok {
		return nil, errors.New("E123").WithField("project.version", "").
			WithDetail("version must be a string")
	}
	fileVersion, pre, err := FileVersion(version)
	if err != nil {
		return nil, err
	}

	md := &Metadata{
		Name:        strings.TrimSpace(*p.Name),
		Description: strings.TrimSpace(p.Description),
		Version:     version,
		Prerelease:  pre,
		FileVersion: fileVersion,
	}
	md.DisplayName = md.Description
	if md.DisplayName == "" {
		md.DisplayName = md.Name
	}
	if len(p.Authors) > 0 {
		md.Author = p.Authors[0].Name
	}

	license, err := readLicense(p.License, projectRoot)
	if err != nil {
		return nil, err
	}
	md.License = license

	return md, nil
}

// FileVersion converts a semantic version into the numeric
// MAJOR.MINOR.PATCH[.N] form used in executable version resources. N is the
// trailing number of the first prerelease identifier ("1.0.0-alpha-1" gives
// "1.0.0.1", "2.1.0-rc.3" gives "2.1.0.0"). It also returns the prerelease
// part of v.
func FileVersion(v string) (fileVersion, prerelease string, err error) {
	sv := "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
	if !semver.IsValid(sv) {
		return "", "", errors.New("E123").
			WithField("project.version", v).
			WithDetail("expected MAJOR.MINOR.PATCH with optional -prerelease and +build")
	}
	core := strings.TrimPrefix(sv, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	if strings.Count(core, ".") != 2 {
		return "", "", errors.New("E123").
			WithField("project.version", v).
			WithDetail("all three of MAJOR.MINOR.PATCH are required")
	}

	prerelease = strings.TrimPrefix(semver.Prerelease(sv), "-")
	if prerelease == "" {
		return core, "", nil
	}
	first, _, _ := strings.Cut(prerelease, ".")
	n := 0
	if i := strings.LastIndex(first, "-"); i >= 0 {
		if parsed, err := strconv.Atoi(first[i+1:]); err == nil {
			n = parsed
		}
	}
	return core + "." + strconv.Itoa(n), prerelease, nil
}

func readLicense(v any, projectRoot string) (string, error) {
	switch lic := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(lic), nil
	case map[string]any:
		if text, ok := lic["text"].(string); ok {
			return firstLine([]byte(text)), nil
		}
		file, ok := lic["file"].(string)
		if !ok {
			return "", errors.New("E122").
				WithField("project.license", "").
				WithDetail("license table needs a file or text key")
		}
		path := filepath.Join(projectRoot, filepath.FromSlash(file))
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.New("E124").WithField("project.license.file", path).Wrap(err)
		}
		return firstLine(data), nil
	}
	return "", errors.New("E121").
		WithField("project.license", "").
		WithDetail("license must be a string or a table")
}

func firstLine(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}
