//go:build !unix && !windows

package tcptag

import "syscall"

func exclusiveBind(_, _ string, _ syscall.RawConn) error { return nil }
