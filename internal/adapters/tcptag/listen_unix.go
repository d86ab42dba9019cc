//go:build unix

package tcptag

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// exclusiveBind clears SO_REUSEADDR so the port cannot be shared.
func exclusiveBind(_, _ string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 0)
	}); err != nil {
		return err
	}
	return serr
}
