package backend

import (
	"os"
	"regexp"
	"strconv"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

var versionAssign = regexp.MustCompile(`(?m)^(__version__\s*(?::\s*str\s*)?=\s*)(["'])[^"'\n]*["']`)

// StampVersion rewrites the first module-level __version__ assignment in
// the Python file at path to version. It is meant to be called from a
// PreprocessSource hook on the working copy.
func StampVersion(path, version string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("E141").WithPath(path).Wrap(err)
	}

	loc := versionAssign.FindSubmatchIndex(data)
	if loc == nil {
		return errors.New("E141").
			WithPath(path).
			WithDetail("no __version__ assignment found")
	}

	quote := string(data[loc[4]:loc[5]])
	literal := strconv.Quote(version)
	if quote == "'" {
		literal = "'" + literal[1:len(literal)-1] + "'"
	}

	var out []byte
	out = append(out, data[:loc[3]]...)
	out = append(out, literal...)
	out = append(out, data[loc[1]:]...)

	info, err := os.Stat(path)
	if err != nil {
		return errors.New("E141").WithPath(path).Wrap(err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return errors.New("E141").WithPath(path).Wrap(err)
	}
	return nil
}
