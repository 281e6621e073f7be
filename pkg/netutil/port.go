// Package netutil holds small networking helpers for servers and tests.
package netutil

import (
	"net"

	"github.com/pkg/errors"
)

// GetAvailablePortForAddress asks the OS for a free TCP port on address. The
// port is released before returning, so callers should bind it promptly.
func GetAvailablePortForAddress(address string) (int32, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(address, "0"))
	if err != nil {
		return 0, errors.Wrap(err, "error reserving port")
	}
	defer listener.Close()

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, errors.Errorf("unexpected listener address type %T", listener.Addr())
	}
	return int32(tcpAddr.Port), nil
}
