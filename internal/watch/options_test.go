package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_InvalidPattern(t *testing.T) {
	_, err := Options{Ignore: []string{"[unclosed"}}.compile()
	assert.Error(t, err)
}

func TestMatcher_ShouldIgnore(t *testing.T) {
	m, err := Options{
		Ignore: []string{"**/target/**", "*.swp", "*~", "/proj/generated.rs"},
	}.compile()
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		expect bool
	}{
		{"build output", "/proj/target/debug/app", true},
		{"swap file", "/proj/src/.main.rs.swp", true},
		{"backup file", "/proj/src/main.rs~", true},
		{"exact path", "/proj/generated.rs", true},
		{"source file", "/proj/src/main.rs", false},
		{"manifest", "/proj/Cargo.toml", false},
		{"similar name", "/proj/targets.rs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, m.shouldIgnore(tt.path))
		})
	}
}

func TestMatcher_IgnoreHidden(t *testing.T) {
	m, err := Options{IgnoreHidden: true}.compile()
	require.NoError(t, err)

	assert.True(t, m.shouldIgnore("/proj/.git"))
	assert.True(t, m.shouldIgnore("/proj/src/.main.rs.swp"))
	assert.False(t, m.shouldIgnore("./src/main.rs"))
	assert.False(t, m.shouldIgnore("../proj/src/main.rs"))
	assert.False(t, m.shouldIgnore("/home/dev/.cache/proj/src/main.rs"), "hidden ancestors of a target do not count")

	m, err = Options{}.compile()
	require.NoError(t, err)
	assert.False(t, m.shouldIgnore("/proj/.git"), "hidden paths pass unless enabled")
}
