package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultSuffix marks output files as carrying embedded data in a Matroska
// container.
const DefaultSuffix = "with_data.mkv"

// Path components a [PathError] can report as missing.
const (
	ComponentParent = "parent directory"
	ComponentStem   = "file stem"
)

// PathError reports an input path an output path cannot be derived from.
type PathError struct {
	Path    string
	Missing string // ComponentParent or ComponentStem.
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot derive output path from %q: no %s", e.Path, e.Missing)
}

// OutputPath returns <dir>/<stem>.<suffix> for input. A bare file name
// resolves relative to the current directory; the empty path and the
// filesystem root have no parent directory.
func OutputPath(input, suffix string) (string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	dir, ok := parentDir(input)
	if !ok {
		return "", &PathError{Path: input, Missing: ComponentParent}
	}
	stem, ok := FileStem(input)
	if !ok {
		return "", &PathError{Path: input, Missing: ComponentStem}
	}
	return filepath.Join(dir, stem+"."+strings.TrimPrefix(suffix, ".")), nil
}

// FileStem returns the final path element without its last extension. A
// leading dot belongs to the stem, so ".hidden" is its own stem; "." and
// ".." have none.
func FileStem(input string) (string, bool) {
	if input == "" {
		return "", false
	}
	base := filepath.Base(filepath.Clean(input))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", false
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i], true
	}
	return base, true
}

func parentDir(input string) (string, bool) {
	if input == "" {
		return "", false
	}
	cleaned := filepath.Clean(input)
	if cleaned == filepath.VolumeName(cleaned)+string(filepath.Separator) {
		return "", false
	}
	return filepath.Dir(cleaned), true
}
