package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// $$ or $var or ${var}
var varPattern = regexp.MustCompile(`\$\$|\$\w+|\$\{[^}]+\}`)

// Lookup resolves a variable name: builtins first, then vars, then the
// environment. The boolean is false when the name is undefined everywhere.
func (c *Config) Lookup(name string) (string, bool) {
	switch name {
	case "cwd":
		path, err := os.Getwd()
		if err != nil {
			return "", false
		}
		return path, true
	case "config_dir":
		if c.Path == "" {
			return "", false
		}
		dir, err := filepath.Abs(filepath.Dir(c.Path))
		if err != nil {
			return "", false
		}
		return dir, true
	}
	if val, ok := c.Vars[name]; ok {
		return val, true
	}
	return os.LookupEnv(name)
}

// Expand substitutes variables in text. Undefined variables are left as
// written and returned by name.
func (c *Config) Expand(text string) (string, []string) {
	var undefined []string
	out := varPattern.ReplaceAllStringFunc(text, func(m string) string {
		if m == "$$" {
			return "$"
		}
		name := strings.TrimPrefix(m, "$")
		name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
		val, ok := c.Lookup(name)
		if !ok {
			undefined = append(undefined, m)
			return m
		}
		return val
	})
	return out, undefined
}

func (c *Config) expandAll() {
	for _, list := range [][]string{c.BuildCmd, c.RunCmd, c.Watch, c.Prologue, c.Epilogue} {
		for i, s := range list {
			expanded, undefined := c.Expand(s)
			for _, u := range undefined {
				c.Warnings = append(c.Warnings, fmt.Sprintf("undefined variable %s in %q", u, s))
			}
			list[i] = expanded
		}
	}
}
