//go:build unix

package fwdsession

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control sets SO_REUSEADDR so the port can be rebound while old
// connections sit in TIME_WAIT.
func control(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
