package config

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// FuzzExpand feeds random text through variable expansion. The text comes
// straight from user YAML.
func FuzzExpand(f *testing.F) {
	f.Add("$CC -o $OUTPUT")
	f.Add("${VAR} test ${ANOTHER}")
	f.Add("")
	f.Add("$")
	f.Add("$$")
	f.Add("$$$")
	f.Add("$cwd")
	f.Add("$NONEXISTENT")
	f.Add("${}")
	f.Add("${UNCLOSED")
	f.Add("special chars: $VAR! @#$%")
	f.Add(strings.Repeat("$VAR", 100))

	cfg := &Config{Vars: map[string]string{
		"CC":      "gcc",
		"OUTPUT":  "app.exe",
		"VAR":     "value",
		"ANOTHER": "test",
	}}

	f.Fuzz(func(t *testing.T, text string) {
		if !utf8.ValidString(text) {
			t.Skip("invalid UTF-8 input")
		}
		if len(text) > 10000 {
			t.Skip("input too long")
		}

		result, undefined := cfg.Expand(text)

		if !utf8.ValidString(result) {
			t.Errorf("invalid UTF-8 in result: %q -> %q", text, result)
		}
		for _, u := range undefined {
			if !strings.Contains(result, u) {
				t.Errorf("undefined variable %q should survive expansion of %q, got %q", u, text, result)
			}
		}
		if !strings.Contains(text, "$") && result != text {
			t.Errorf("text without variables changed: %q -> %q", text, result)
		}
	})
}
