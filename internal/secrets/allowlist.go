package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// AllowlistFile is the allowlist looked up in the project directory.
const AllowlistFile = ".gitleaks.toml"

// Allowlist holds path and content patterns excluded from detection.
type Allowlist struct {
	Paths   []*regexp.Regexp
	Regexes []*regexp.Regexp
}

// Empty reports whether the allowlist has no patterns.
func (a *Allowlist) Empty() bool {
	return a == nil || len(a.Paths)+len(a.Regexes) == 0
}

// LoadAllowlist reads AllowlistFile from dir. A missing file yields an
// empty allowlist; invalid TOML or patterns are errors.
func LoadAllowlist(dir string) (*Allowlist, error) {
	if dir == "" {
		return &Allowlist{}, nil
	}
	path := filepath.Join(dir, AllowlistFile)

	var file struct {
		Allowlist struct {
			Paths   []string
			Regexes []string
		}
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	paths, err := compileAll(path, "path", file.Allowlist.Paths)
	if err != nil {
		return nil, err
	}
	regexes, err := compileAll(path, "content", file.Allowlist.Regexes)
	if err != nil {
		return nil, err
	}
	return &Allowlist{Paths: paths, Regexes: regexes}, nil
}

func compileAll(file, kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s pattern '%s' in %s: %v", ErrInvalidRegex, kind, p, file, err)
		}
		out = append(out, re)
	}
	return out, nil
}
