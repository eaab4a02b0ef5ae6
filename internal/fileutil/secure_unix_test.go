//go:build !windows

package fileutil

import "testing"

// assertOwnerOnlyWindows is a no-op on Unix. Permission checks live in the
// shared assertOwnerOnly helper using standard mode bits.
func assertOwnerOnlyWindows(t *testing.T, _ string) {
	t.Helper()
}

// assertHasInheritedACEs is a no-op on Unix. It tests Windows ACL behavior.
func assertHasInheritedACEs(t *testing.T, _ string) {
	t.Helper()
}
