// Package daemon manages the serve-mode process files: the PID file
// guarding against double starts, the port file that lets the CLI find
// a running server, and the log file serve mode writes to.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/agentwarden/warden/internal/config"
	"github.com/agentwarden/warden/internal/fileutil"
)

const (
	pidFileName  = "warden.pid"
	portFileName = "warden.port"
	logFileName  = "warden.log"
	sockFileName = "warden.sock"
)

// DataDir returns the warden data directory and creates it if needed.
func DataDir() string {
	dir := config.DataDir()
	_ = fileutil.SecureMkdirAll(dir) //nolint:errcheck // best effort - dir may exist
	return dir
}

// pidFile returns the path to the PID file.
func pidFile() string {
	return filepath.Join(DataDir(), pidFileName)
}

// LogFile returns the path to the serve-mode log file.
func LogFile() string {
	return filepath.Join(DataDir(), logFileName)
}

// LogFileDisplay returns a display-friendly log path using ~ for the
// home directory.
func LogFileDisplay() string {
	p := LogFile()
	if home, err := os.UserHomeDir(); err == nil {
		if rel, err := filepath.Rel(home, p); err == nil && !filepath.IsAbs(rel) {
			return "~/" + rel
		}
	}
	return p
}

// SocketFile returns the default API socket path.
func SocketFile() string {
	return filepath.Join(DataDir(), sockFileName)
}

// portFile returns the path to the port file.
func portFile() string {
	return filepath.Join(DataDir(), portFileName)
}

// WritePort records the TCP port the API server is listening on.
// Port 0 (socket-only mode) removes the file instead.
func WritePort(port int) error {
	if port == 0 {
		_ = os.Remove(portFile())
		return nil
	}
	return fileutil.SecureWriteFile(portFile(), []byte(strconv.Itoa(port)))
}

// ReadPort reads the recorded API port; 0 means no TCP listener.
func ReadPort() int {
	data, err := os.ReadFile(portFile())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(string(data))
	if err != nil || port < 1 || port > 65535 {
		return 0
	}
	return port
}

// ReadPID reads the PID from the PID file.
func ReadPID() (int, error) {
	data, err := os.ReadFile(pidFile())
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}

	// SECURITY: Validate PID is in valid range (1 to max PID)
	// Linux max PID is typically 4194304 (2^22), but 32768 is default
	if pid < 1 || pid > 4194304 {
		return 0, fmt.Errorf("invalid PID value: %d", pid)
	}

	return pid, nil
}

// RemovePID removes the PID file.
func RemovePID() error {
	return os.Remove(pidFile())
}
