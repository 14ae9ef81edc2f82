package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Options configures the file watcher behavior.
type Options struct {
	// Ignore holds glob patterns. A pattern matches either the slash
	// separated path or its base name; "**" crosses directories.
	Ignore       []string
	IgnoreHidden bool
}

type matcher struct {
	globs        []glob.Glob
	ignoreHidden bool
}

func (o Options) compile() (*matcher, error) {
	m := &matcher{ignoreHidden: o.IgnoreHidden}
	for _, pattern := range o.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// shouldIgnore checks if a path matches ignore patterns. Only the base
// name is tested for hidden entries: hidden directories are never walked,
// so nothing below one reaches the matcher.
func (m *matcher) shouldIgnore(path string) bool {
	clean := filepath.ToSlash(filepath.Clean(path))
	base := filepath.Base(path)

	if m.ignoreHidden && strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}

	for _, g := range m.globs {
		if g.Match(clean) || g.Match(base) {
			return true
		}
	}
	return false
}
