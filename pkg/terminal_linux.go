//go:build linux

package pkg

import "golang.org/x/sys/unix"

// IsTerminal reports whether fd refers to a terminal device.
func IsTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}
