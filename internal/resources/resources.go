// Package resources reads external resource manifests and resolves them to
// the files that get bundled next to the executable.
//
// A manifest is a list of glob patterns, relative to the manifest's own
// directory:
//
//	// res/ext_resources.json
//	[
//	    "../LICENSE",
//	    "resources/*.txt", // comments and trailing commas are allowed
//	    "themes/**",
//	]
//
// Manifests ending in .yml or .yaml are read as a YAML list instead.
//
// Each match keeps its position relative to the project root, so
// "res/resources/a.txt" ends up at "<dist>/res/resources/a.txt" and
// "res/../LICENSE" at "<dist>/LICENSE".
package resources

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

// Resource is one file to bundle.
type Resource struct {
	// Source is the absolute path of the file.
	Source string

	// Dest is the destination path relative to the dist directory.
	Dest string
}

// ParseManifest reads the glob patterns listed in a manifest file.
func ParseManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E105").WithPath(path).Wrap(err)
	}

	var patterns []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &patterns); err != nil {
			return nil, errors.New("E105").
				WithPath(path).
				WithDetail("Failed to parse YAML: " + err.Error()).
				WithSuggestion("The manifest must be a list of glob patterns")
		}
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, errors.New("E105").
				WithPath(path).
				WithDetail("Failed to parse JSON: " + err.Error())
		}
		if err := json.Unmarshal(std, &patterns); err != nil {
			return nil, errors.New("E105").
				WithPath(path).
				WithDetail("Failed to parse JSON: " + err.Error()).
				WithSuggestion("The manifest must be a JSON array of glob patterns")
		}
	}

	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, errors.New("E105").
				WithPath(path).
				WithDetail("Empty pattern at index " + strconv.Itoa(i))
		}
		if !doublestar.ValidatePathPattern(filepath.FromSlash(p)) {
			return nil, errors.New("E105").
				WithPath(path).
				WithDetail("Invalid glob pattern " + p)
		}
	}
	return patterns, nil
}

// Load parses the manifest at manifestPath and resolves its patterns.
func Load(projectRoot, manifestPath string) ([]Resource, error) {
	patterns, err := ParseManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	return Expand(projectRoot, manifestPath, patterns)
}

// Expand resolves patterns relative to the manifest's directory. Matched
// directories contribute every file below them. The result is sorted by
// destination and free of duplicates.
func Expand(projectRoot, manifestPath string, patterns []string) ([]Resource, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, errors.New("E105").WithPath(projectRoot).Wrap(err)
	}
	manifestDir, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return nil, errors.New("E105").WithPath(manifestPath).Wrap(err)
	}

	seen := make(map[string]Resource)
	add := func(src string) error {
		rel, err := filepath.Rel(root, src)
		if err != nil || escapes(rel) {
			return errors.New("E105").
				WithPath(manifestPath).
				WithDetail("Resource " + src + " lies outside the project root")
		}
		seen[rel] = Resource{Source: src, Dest: rel}
		return nil
	}

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(manifestDir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, errors.New("E105").
				WithPath(manifestPath).
				WithDetail("Invalid glob pattern " + pattern).
				Wrap(err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, errors.New("E105").WithPath(match).Wrap(err)
			}
			if !info.IsDir() {
				if err := add(match); err != nil {
					return nil, err
				}
				continue
			}
			err = filepath.WalkDir(match, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.Type().IsRegular() {
					return add(path)
				}
				return nil
			})
			if err != nil {
				return nil, errors.FromError(err, "E105").WithPath(match)
			}
		}
	}

	out := make([]Resource, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dest < out[j].Dest })
	return out, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}
