package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestSecureWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.json")

	if err := SecureWriteFile(path, []byte(`{"trusted_commands":{}}`)); err != nil {
		t.Fatalf("SecureWriteFile: %v", err)
	}

	// Verify content was written
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"trusted_commands":{}}` {
		t.Fatalf("got %q, want %q", data, `{"trusted_commands":{}}`)
	}

	assertOwnerOnly(t, path)
}

func TestSecureWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.json")

	if err := SecureWriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SecureWriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("got %q, want %q", data, "second")
	}

	assertOwnerOnly(t, path)
}

func TestSecureWriteFileAtomic_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.json")

	if err := SecureWriteFileAtomic(path, []byte(`{"trusted_commands":{}}`)); err != nil {
		t.Fatalf("SecureWriteFileAtomic: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestSecureWriteFileAtomic_MissingDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist", "context.json")

	// Caller is responsible for creating parents; the temp file must not
	// be silently dropped elsewhere.
	if err := SecureWriteFileAtomic(path, []byte("x")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestSecureMkdirAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles", "default")

	if err := SecureMkdirAll(path); err != nil {
		t.Fatalf("SecureMkdirAll: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}

	assertOwnerOnly(t, path)
}

func TestSecureOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.pid")

	f, err := SecureOpenFile(path, os.O_CREATE|os.O_WRONLY)
	if err != nil {
		t.Fatalf("SecureOpenFile: %v", err)
	}
	if _, err := f.WriteString("12345"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "12345" {
		t.Fatalf("got %q, want %q", data, "12345")
	}

	assertOwnerOnly(t, path)
}

func TestSecureWriteFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overwrite.json")

	if err := SecureWriteFile(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SecureWriteFile(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("got %q, want %q", data, "second")
	}

	assertOwnerOnly(t, path)
}

func TestSecureWriteFile_EmptyData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")

	if err := SecureWriteFile(path, []byte{}); err != nil {
		t.Fatalf("SecureWriteFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got size %d", info.Size())
	}

	assertOwnerOnly(t, path)
}

func TestSecureMkdirAll_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing")

	// Create directory twice, the second call must not error.
	if err := SecureMkdirAll(path); err != nil {
		t.Fatalf("first SecureMkdirAll: %v", err)
	}
	if err := SecureMkdirAll(path); err != nil {
		t.Fatalf("second SecureMkdirAll: %v", err)
	}

	assertOwnerOnly(t, path)
}

func TestSecureOpenFile_AppendMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.log")

	// First write
	f, err := SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	f.WriteString("line1\n")
	f.Close()

	// Second write (append)
	f, err = SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	f.WriteString("line2\n")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "line1\nline2\n" {
		t.Fatalf("got %q, want %q", data, "line1\nline2\n")
	}

	assertOwnerOnly(t, path)
}

// TestInsecureWriteFile_NoACL demonstrates the bug Secure* exists for: on
// Windows, os.WriteFile with 0600 does NOT restrict access. The file
// inherits the parent's DACL, typically granting access to BUILTIN\Users
// and other groups.
func TestInsecureWriteFile_NoACL(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("Windows-only test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "insecure.json")

	if err := os.WriteFile(path, []byte("should be insecure"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// On Windows this file inherits the parent directory's DACL and
	// typically has ACEs for BUILTIN\Users, BUILTIN\Administrators, etc.
	assertHasInheritedACEs(t, path)
}

// assertOwnerOnly checks that the file/dir has proper restricted permissions.
// On Unix: verifies mode bits exclude group/other access.
// On Windows: verified by the platform-specific test helper.
func assertOwnerOnly(t *testing.T, path string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		assertOwnerOnlyWindows(t, path)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat %s: %v", path, err)
	}
	mode := info.Mode().Perm()

	if mode&0077 != 0 {
		t.Errorf("%s has group/other permissions: %04o", path, mode)
	}
}
