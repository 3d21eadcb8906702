// Package manifest reads requirements-style dependency manifests. Parsing
// exists for inspection (doctor, env info) only; installation always hands
// the file to the platform installer untouched.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Requirement is a single declared dependency.
type Requirement struct {
	// Name is the bare package name, without extras or version constraint.
	Name string
	// Extras holds the bracketed extras, e.g. "security,socks".
	Extras string
	// Constraint is the version specifier as written, e.g. "==2.31.0".
	Constraint string
	// Raw is the full line as it appeared in the manifest.
	Raw string
}

// File is a parsed manifest.
type File struct {
	Path         string
	Requirements []Requirement
	// Options are installer option lines (leading '-'), kept verbatim.
	Options []string
}

// IsEmpty reports whether the manifest declares no requirements. Option
// lines alone still count as empty: there is nothing to install.
func (f File) IsEmpty() bool {
	return len(f.Requirements) == 0
}

// Load parses the manifest at path. A missing file is returned as the
// underlying *fs.PathError so callers can distinguish absent from empty.
func Load(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return File{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse reads requirement lines from r. Blank lines and comments are
// dropped; inline comments are stripped when preceded by whitespace.
func Parse(r io.Reader) (File, error) {
	var f File

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			f.Options = append(f.Options, line)
			continue
		}
		f.Requirements = append(f.Requirements, parseRequirement(line))
	}
	if err := sc.Err(); err != nil {
		return File{}, err
	}
	return f, nil
}

var constraintOps = []string{"===", "==", "~=", "!=", ">=", "<=", ">", "<"}

func parseRequirement(line string) Requirement {
	req := Requirement{Raw: line}

	rest := line
	at := len(rest)
	op := ""
	for _, candidate := range constraintOps {
		if i := strings.Index(rest, candidate); i >= 0 && i < at {
			at = i
			op = candidate
		}
	}
	if op != "" {
		req.Constraint = strings.TrimSpace(rest[at:])
		rest = strings.TrimSpace(rest[:at])
	}

	if open := strings.Index(rest, "["); open >= 0 {
		if end := strings.Index(rest, "]"); end > open {
			req.Extras = rest[open+1 : end]
		}
		rest = rest[:open]
	}
	req.Name = strings.TrimSpace(rest)
	return req
}
