//go:build windows

package api

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/Microsoft/go-winio"
)

// pipeName derives a Windows named pipe path from the configured socket
// path. The pipe namespace is global; only the base name matters.
func pipeName(socketPath string) string {
	base := strings.TrimSuffix(filepath.Base(socketPath), ".sock")
	return `\\.\pipe\` + base
}

// Listen creates a Windows named pipe listener with the default DACL
// (creator + local admins).
func Listen(socketPath string) (net.Listener, error) {
	name := pipeName(socketPath)

	cfg := &winio.PipeConfig{
		// Empty SecurityDescriptor → inherits default DACL.
		// Default is acceptable: only the creator and local admins can connect.
		MessageMode: false,
	}

	ln, err := winio.ListenPipe(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("listen pipe %s: %w", name, err)
	}
	return ln, nil
}

// CleanupSocket is a no-op on Windows; named pipes are cleaned up by the kernel.
func CleanupSocket(_ string) {}
