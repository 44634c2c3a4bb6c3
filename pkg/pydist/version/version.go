// Package version implements the PEP 440 version scheme: parsing,
// normalization, and the total ordering used to decide whether a release is
// actually a bump over what the index already has.
//
// https://peps.python.org/pep-0440/
package version

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// A Version is a local version identifier:
//
//	[N!]N(.N)*[{a|b|rc}N][.postN][.devN][+<local>]
type Version struct {
	// Epoch segment: "N!"
	Epoch int
	// Release segment: "N(.N)*"
	Release []int
	// Pre-release segment: "{a|b|rc}N"
	Pre *PreRelease
	// Post-release segment: ".postN"
	Post *int
	// Development release segment: ".devN"
	Dev *int
	// Local version label: "+foo.N"; digit-only segments compare
	// numerically, the rest compare as lowercase text.
	Local []intstr.IntOrString
}

type PreRelease struct {
	L string // "a", "b", or "rc" in normal form
	N int
}

// String renders the version without performing any normalization.
func (v Version) String() string {
	var ret strings.Builder
	if v.Epoch > 0 {
		fmt.Fprintf(&ret, "%d!", v.Epoch)
	}
	if len(v.Release) == 0 {
		panic("version: no release segments")
	}
	fmt.Fprintf(&ret, "%d", v.Release[0])
	for _, n := range v.Release[1:] {
		fmt.Fprintf(&ret, ".%d", n)
	}
	if v.Pre != nil {
		fmt.Fprintf(&ret, "%s%d", v.Pre.L, v.Pre.N)
	}
	if v.Post != nil {
		fmt.Fprintf(&ret, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&ret, ".dev%d", *v.Dev)
	}
	sep := "+"
	for _, local := range v.Local {
		ret.WriteString(sep)
		ret.WriteString(local.String())
		sep = "."
	}
	return ret.String()
}

// IsFinal reports whether v is a final release: no pre/post/dev suffix and no
// local label.
func (v Version) IsFinal() bool {
	return v.Pre == nil && v.Post == nil && v.Dev == nil && len(v.Local) == 0
}

// IsPreRelease reports whether installers should hide v by default.
func (v Version) IsPreRelease() bool {
	return v.Pre != nil || v.Dev != nil
}

func (v Version) releaseSegment(n int) int {
	if n < len(v.Release) {
		return v.Release[n]
	}
	return 0
}

func (v Version) Major() int { return v.releaseSegment(0) }
func (v Version) Minor() int { return v.releaseSegment(1) }
func (v Version) Micro() int { return v.releaseSegment(2) }

// Public returns v without its local version label.
func (v Version) Public() Version {
	v.Local = nil
	return v
}

// preReleaseOrder maps pre-release spellings to their phase rank; spellings
// beyond a/b/rc survive parsing only transiently, normalization rewrites
// them.
var preReleaseOrder = map[string]int{
	"a": -3, "alpha": -3,
	"b": -2, "beta": -2,
	"rc": -1, "c": -1, "pre": -1, "preview": -1,
	// absent: 0
}

func cmpRelease(a, b Version) int {
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		if d := a.releaseSegment(i) - b.releaseSegment(i); d != 0 {
			return d
		}
	}
	return 0
}

func cmpPreRelease(a, b Version) int {
	var aL, aN, bL, bN int
	if a.Pre != nil {
		var ok bool
		aL, ok = preReleaseOrder[a.Pre.L]
		if !ok {
			panic(fmt.Errorf("invalid pre-release string: %q", a.Pre.L))
		}
		aN = a.Pre.N
	} else if a.Dev != nil && a.Post == nil {
		// "1.0.dev1" sorts before "1.0a1".
		aL = -4
	}
	if b.Pre != nil {
		var ok bool
		bL, ok = preReleaseOrder[b.Pre.L]
		if !ok {
			panic(fmt.Errorf("invalid pre-release string: %q", b.Pre.L))
		}
		bN = b.Pre.N
	} else if b.Dev != nil && b.Post == nil {
		bL = -4
	}
	if aL != bL {
		return aL - bL
	}
	return aN - bN
}

func cmpPostRelease(a, b Version) int {
	aPost, bPost := -1, -1
	if a.Post != nil {
		aPost = *a.Post
	}
	if b.Post != nil {
		bPost = *b.Post
	}
	return aPost - bPost
}

func cmpDevRelease(a, b Version) int {
	switch {
	case a.Dev == nil && b.Dev == nil:
		return 0
	case a.Dev == nil:
		return 1
	case b.Dev == nil:
		return -1
	default:
		return (*a.Dev) - (*b.Dev)
	}
}

func cmpLocalSegment(a, b *intstr.IntOrString) int {
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	switch {
	case a.Type == intstr.Int && b.Type == intstr.Int:
		return int(a.IntVal - b.IntVal)
	case a.Type == intstr.String && b.Type == intstr.String:
		return strings.Compare(a.StrVal, b.StrVal)
	case a.Type == intstr.Int && b.Type == intstr.String:
		// numeric segments sort after text segments
		return 1
	default:
		return -1
	}
}

func cmpLocal(a, b Version) int {
	for i := 0; i < len(a.Local) || i < len(b.Local); i++ {
		var aSeg, bSeg *intstr.IntOrString
		if i < len(a.Local) {
			aSeg = &a.Local[i]
		}
		if i < len(b.Local) {
			bSeg = &b.Local[i]
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// Cmp returns a number < 0 if a sorts before b, > 0 if a sorts after b, and 0
// if they are the same version; like strcmp, only the sign is meaningful.
func (a Version) Cmp(b Version) int {
	if d := a.Epoch - b.Epoch; d != 0 {
		return d
	}
	if d := cmpRelease(a, b); d != 0 {
		return d
	}
	// suffix order within one release: .devN, aN, bN, rcN, <none>, .postN
	if d := cmpPreRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPostRelease(a, b); d != 0 {
		return d
	}
	if d := cmpDevRelease(a, b); d != 0 {
		return d
	}
	return cmpLocal(a, b)
}

// Normalize reparses v's string form, rewriting alternative spellings to the
// canonical ones.
func (v Version) Normalize() (*Version, error) {
	return Parse(v.String())
}
