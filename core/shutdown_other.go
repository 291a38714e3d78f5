//go:build !unix

package core

import "net"

type closeReadWriter interface {
	CloseRead() error
	CloseWrite() error
}

func shutdownConn(conn net.Conn) {
	if c, ok := conn.(closeReadWriter); ok {
		_ = c.CloseRead()
		_ = c.CloseWrite()
	}
}
