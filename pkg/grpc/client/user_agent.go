package client

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/grpc/metadata"
)

const (
	UserAgentHeaderName = "user-agent"
)

// Matches the leading product token, for example "todo-cli/1.2.0" in
// "todo-cli/1.2.0 grpc-go/1.67.1".
var productTokenRegex = regexp.MustCompile(`^([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)`)

type UserAgent struct {
	Product string
	Version string

	raw string
}

func (ua *UserAgent) String() string {
	return ua.raw
}

// GetUserAgent gets the client user agent value from headers in the provided
// context
func GetUserAgent(ctx context.Context) (*UserAgent, error) {
	mtdt, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.New("no metadata in context")
	}

	values := mtdt.Get(UserAgentHeaderName)
	if len(values) == 0 {
		return nil, errors.New("user agent header not present")
	}

	headerValue := strings.TrimSpace(values[0])
	if len(headerValue) == 0 {
		return nil, errors.New("user agent header is empty")
	}

	userAgent := &UserAgent{raw: headerValue}

	matches := productTokenRegex.FindStringSubmatch(headerValue)
	if len(matches) == 3 {
		userAgent.Product = matches[1]
		userAgent.Version = matches[2]
	}

	return userAgent, nil
}
