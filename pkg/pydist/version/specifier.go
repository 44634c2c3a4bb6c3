package version

import (
	"fmt"
	"strings"
)

// A Specifier is a comma-separated list of clauses, all of which must match;
// this is the "version specifiers" half of PEP 440 as used by
// Requires-Python.
type Specifier []SpecifierClause

type SpecifierOp string

const (
	OpCompatible SpecifierOp = "~="
	OpEqual      SpecifierOp = "=="
	OpNotEqual   SpecifierOp = "!="
	OpLE         SpecifierOp = "<="
	OpGE         SpecifierOp = ">="
	OpLT         SpecifierOp = "<"
	OpGT         SpecifierOp = ">"
)

type SpecifierClause struct {
	Op SpecifierOp
	// Version is the clause's operand.  For == and != it may carry a
	// trailing ".*" prefix-match marker, recorded in Prefix.
	Version Version
	Prefix  bool
}

// ParseSpecifier parses e.g. ">=3.8,<4".
func ParseSpecifier(str string) (Specifier, error) {
	clauseStrs := strings.FieldsFunc(str, func(r rune) bool { return r == ',' })
	ret := make(Specifier, 0, len(clauseStrs))
	for _, clauseStr := range clauseStrs {
		clause, err := parseSpecifierClause(strings.TrimSpace(clauseStr))
		if err != nil {
			return nil, fmt.Errorf("version.ParseSpecifier: %w", err)
		}
		ret = append(ret, clause)
	}
	return ret, nil
}

func parseSpecifierClause(str string) (SpecifierClause, error) {
	var ret SpecifierClause
	switch {
	case strings.HasPrefix(str, string(OpCompatible)):
		ret.Op = OpCompatible
		str = str[2:]
	case strings.HasPrefix(str, string(OpEqual)):
		ret.Op = OpEqual
		str = str[2:]
	case strings.HasPrefix(str, string(OpNotEqual)):
		ret.Op = OpNotEqual
		str = str[2:]
	case strings.HasPrefix(str, string(OpLE)):
		ret.Op = OpLE
		str = str[2:]
	case strings.HasPrefix(str, string(OpGE)):
		ret.Op = OpGE
		str = str[2:]
	case strings.HasPrefix(str, string(OpLT)):
		ret.Op = OpLT
		str = str[1:]
	case strings.HasPrefix(str, string(OpGT)):
		ret.Op = OpGT
		str = str[1:]
	default:
		// bare version means ==
		ret.Op = OpEqual
	}
	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, ".*") {
		if ret.Op != OpEqual && ret.Op != OpNotEqual {
			return ret, fmt.Errorf("prefix match %q not allowed with operator %q", str, ret.Op)
		}
		ret.Prefix = true
		str = strings.TrimSuffix(str, ".*")
	}
	ver, err := Parse(str)
	if err != nil {
		return ret, err
	}
	ret.Version = *ver
	return ret, nil
}

// Match reports whether all clauses accept ver.
func (spec Specifier) Match(ver Version) bool {
	for _, clause := range spec {
		if !clause.Match(ver) {
			return false
		}
	}
	return true
}

// prefixMatch reports whether ver falls in the release series of base, i.e.
// "==base.*" semantics.
func prefixMatch(base, ver Version) bool {
	if base.Epoch != ver.Epoch {
		return false
	}
	for i := range base.Release {
		if ver.releaseSegment(i) != base.Release[i] {
			return false
		}
	}
	return true
}

func (clause SpecifierClause) Match(ver Version) bool {
	switch clause.Op {
	case OpCompatible:
		// "~= X.Y.Z" is ">= X.Y.Z, == X.Y.*"
		if ver.Public().Cmp(clause.Version) < 0 {
			return false
		}
		series := clause.Version
		if len(series.Release) < 2 {
			return false // "~= X" is not a valid clause, match nothing
		}
		series.Release = series.Release[:len(series.Release)-1]
		series.Pre, series.Post, series.Dev, series.Local = nil, nil, nil, nil
		return prefixMatch(series, ver)
	case OpEqual:
		if clause.Prefix {
			return prefixMatch(clause.Version, ver)
		}
		return ver.Public().Cmp(clause.Version.Public()) == 0 &&
			(len(clause.Version.Local) == 0 || cmpLocal(ver, clause.Version) == 0)
	case OpNotEqual:
		eq := clause
		eq.Op = OpEqual
		return !eq.Match(ver)
	case OpLE:
		return ver.Cmp(clause.Version) <= 0
	case OpGE:
		return ver.Cmp(clause.Version) >= 0
	case OpLT:
		// exclude pre-releases of the boundary version itself
		if ver.Cmp(clause.Version) >= 0 {
			return false
		}
		if clause.Version.IsFinal() && prefixMatch(clause.Version, ver) && ver.IsPreRelease() {
			return false
		}
		return true
	case OpGT:
		// exclude post-releases of the boundary version itself
		if ver.Cmp(clause.Version) <= 0 {
			return false
		}
		if clause.Version.IsFinal() && prefixMatch(clause.Version, ver) && ver.Post != nil {
			return false
		}
		return true
	default:
		panic(fmt.Errorf("invalid specifier operator: %q", clause.Op))
	}
}

// HaveRequiredPython reports whether the interpreter version `have`
// satisfies a Requires-Python `requirement`.
func HaveRequiredPython(have Version, requirement string) (bool, error) {
	spec, err := ParseSpecifier(requirement)
	if err != nil {
		return false, err
	}
	return spec.Match(have), nil
}
