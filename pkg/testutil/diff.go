// Package testutil has shared test helpers.
package testutil

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// Dump renders val deterministically, for diffing.
func Dump(val interface{}) string {
	return spewConfig.Sdump(val)
}

// AssertEqual compares exp and act by their dumps, and on mismatch reports a
// unified diff rather than testify's one-line blob.  Handy for big row
// slices and nested structs.
func AssertEqual(t *testing.T, exp, act interface{}) bool {
	t.Helper()
	expStr := Dump(exp)
	actStr := Dump(act)
	if expStr == actStr {
		return true
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expStr),
		B:        difflib.SplitLines(actStr),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	t.Errorf("Diff:\n%s", diff)
	return false
}
