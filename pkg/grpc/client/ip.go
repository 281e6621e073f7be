package client

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

const (
	clientIPHeader = "x-forwarded-for"
)

// GetIPAddr returns the originating client IP. Behind a proxy that is the
// first hop in x-forwarded-for, otherwise the address of the connected peer.
func GetIPAddr(ctx context.Context) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, header := range md.Get(clientIPHeader) {
			first, _, _ := strings.Cut(header, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip, nil
			}
		}
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "", errors.New("client ip unavailable")
	}

	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host, nil
	}
	return addr, nil
}
