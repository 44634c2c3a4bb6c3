package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// The permissive pattern from PEP 440 Appendix B; accepts the alternative
// spellings and separators that Normalize rewrites.
var versionRe = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?dev[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

var versionReGroups = func() map[string]int {
	groups := make(map[string]int)
	for i, name := range versionRe.SubexpNames() {
		if name != "" {
			groups[name] = i
		}
	}
	return groups
}()

func atoiOr(str string, fallback int) int {
	if str == "" {
		return fallback
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		panic(fmt.Errorf("regexp allowed a non-number: %q: %w", str, err))
	}
	return n
}

// Parse parses and normalizes a version string.
func Parse(str string) (*Version, error) {
	match := versionRe.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("version.Parse: invalid version: %q", str)
	}
	group := func(name string) string {
		return strings.ToLower(match[versionReGroups[name]])
	}

	var ret Version
	ret.Epoch = atoiOr(group("epoch"), 0)
	for _, seg := range strings.Split(group("release"), ".") {
		ret.Release = append(ret.Release, atoiOr(seg, 0))
	}
	if group("pre") != "" {
		l := group("pre_l")
		switch l {
		case "alpha":
			l = "a"
		case "beta":
			l = "b"
		case "c", "pre", "preview":
			l = "rc"
		}
		ret.Pre = &PreRelease{L: l, N: atoiOr(group("pre_n"), 0)}
	}
	if group("post") != "" {
		n := atoiOr(group("post_n1"), atoiOr(group("post_n2"), 0))
		ret.Post = &n
	}
	if group("dev") != "" {
		n := atoiOr(group("dev_n"), 0)
		ret.Dev = &n
	}
	if local := group("local"); local != "" {
		for _, seg := range strings.FieldsFunc(local, func(r rune) bool {
			return r == '.' || r == '-' || r == '_'
		}) {
			if n, err := strconv.Atoi(seg); err == nil {
				ret.Local = append(ret.Local, intstr.FromInt(n))
			} else {
				ret.Local = append(ret.Local, intstr.FromString(seg))
			}
		}
	}
	return &ret, nil
}

// MustParse is Parse for static version strings; it panics on error.
func MustParse(str string) Version {
	v, err := Parse(str)
	if err != nil {
		panic(err)
	}
	return *v
}
