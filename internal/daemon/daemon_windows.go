//go:build windows

package daemon

import (
	"errors"
	"fmt"
	"os"

	"github.com/agentwarden/warden/internal/fileutil"
	"golang.org/x/sys/windows"
)

// pidLockFile holds the open PID file to maintain the LockFileEx advisory lock.
// The lock is held for the lifetime of the serve process.
var pidLockFile *os.File

// WritePID writes the current process ID to the PID file with an exclusive
// lock (LockFileEx). The lock prevents two serve instances from running
// simultaneously. The returned file handle must remain open to hold the lock;
// call CleanupPID on shutdown.
func WritePID() error {
	path := pidFile()
	f, err := fileutil.SecureOpenFile(path, os.O_CREATE|os.O_WRONLY)
	if err != nil {
		return fmt.Errorf("open PID file: %w", err)
	}
	// LOCKFILE_EXCLUSIVE_LOCK | LOCKFILE_FAIL_IMMEDIATELY
	// Lock at a high offset (0x7FFFFFFF) so the lock doesn't overlap with the
	// PID content bytes. This allows other processes to read the PID file via
	// os.ReadFile while the exclusive lock still prevents two instances.
	ol := &windows.Overlapped{Offset: 0x7FFFFFFF}
	err = windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, // reserved
		1, // lock 1 byte
		0, // high
		ol,
	)
	if err != nil {
		f.Close()
		return fmt.Errorf("another instance is running (LockFileEx %s): %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		f.Close()
		return fmt.Errorf("write PID file: %w", err)
	}
	pidLockFile = f
	return nil
}

// CleanupPID releases the file lock and removes the PID and port files.
// Named pipes are cleaned up by the kernel on Windows; no socket cleanup needed.
func CleanupPID() {
	if pidLockFile != nil {
		pidLockFile.Close()
		pidLockFile = nil
	}
	_ = os.Remove(pidFile())
	_ = os.Remove(portFile())
}

// IsRunning checks if a serve process is running by opening the process handle.
func IsRunning() (bool, int) {
	pid, err := ReadPID()
	if err != nil {
		return false, 0
	}

	// On Windows, OpenProcess succeeds only if the process exists.
	// PROCESS_QUERY_LIMITED_INFORMATION is the least-privilege access right.
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// Process doesn't exist, clean up stale PID file
		_ = RemovePID() //nolint:errcheck // cleanup best effort
		return false, 0
	}
	windows.CloseHandle(h)

	return true, pid
}

// Stop stops the running serve process by terminating it.
// Windows has no graceful signal equivalent to SIGTERM, so we use
// TerminateProcess after a brief period to allow cleanup via the PID file.
func Stop() error {
	running, pid := IsRunning()
	if !running {
		return errors.New("warden is not running")
	}

	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE|windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("failed to open process: %w", err)
	}
	defer windows.CloseHandle(h)

	// Terminate the process (exit code 1)
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("failed to stop warden: %w", err)
	}

	// Wait for process to exit (with timeout)
	event, err := windows.WaitForSingleObject(h, 3000) // 3 seconds
	if err != nil || event == uint32(0x00000102) {     // WAIT_TIMEOUT
		// Best effort — process may be stuck
	}

	_ = RemovePID() //nolint:errcheck // cleanup best effort
	return nil
}
