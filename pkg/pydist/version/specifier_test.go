package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/pydist/version"
)

func TestSpecifierMatch(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Spec    string
		Version string
		Match   bool
	}{
		"ge-hit":            {">=3.8", "3.8", true},
		"ge-hit-newer":      {">=3.8", "3.11.4", true},
		"ge-miss":           {">=3.8", "3.7.12", false},
		"range-hit":         {">=3.8,<4", "3.9", true},
		"range-miss-high":   {">=3.8,<4", "4.0", false},
		"lt-excludes-pre":   {"<4", "4.0rc1", false},
		"lt-allows-older":   {"<4", "3.999", true},
		"gt-excludes-post":  {">3.8", "3.8.post1", false},
		"gt-allows-newer":   {">3.8", "3.8.1", true},
		"eq-exact":          {"==1.4.2", "1.4.2", true},
		"eq-pad":            {"==1.4", "1.4.0", true},
		"eq-miss":           {"==1.4.2", "1.4.3", false},
		"eq-prefix-hit":     {"==1.4.*", "1.4.99", true},
		"eq-prefix-miss":    {"==1.4.*", "1.5.0", false},
		"ne-hit":            {"!=1.4.2", "1.4.3", true},
		"ne-prefix-miss":    {"!=1.4.*", "1.4.3", false},
		"compat-hit":        {"~=2.2", "2.3", true},
		"compat-hit-micro":  {"~=1.4.5", "1.4.9", true},
		"compat-miss-minor": {"~=1.4.5", "1.5.0", false},
		"compat-miss-old":   {"~=2.2", "2.1", false},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			spec, err := version.ParseSpecifier(tc.Spec)
			require.NoError(t, err)
			assert.Equal(t, tc.Match, spec.Match(version.MustParse(tc.Version)),
				"spec %q vs version %q", tc.Spec, tc.Version)
		})
	}
}

func TestSpecifierParseErrors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{">=bogus", "<=1.0.*"} {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := version.ParseSpecifier(in)
			assert.Error(t, err)
		})
	}
}

func TestHaveRequiredPython(t *testing.T) {
	t.Parallel()
	ok, err := version.HaveRequiredPython(version.MustParse("3.8.10"), ">=3.8")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = version.HaveRequiredPython(version.MustParse("3.6"), ">=3.8")
	require.NoError(t, err)
	assert.False(t, ok)
}
