package client

import (
	"context"

	"github.com/sirupsen/logrus"
)

// InjectLoggingMetadata annotates log with whatever the request reveals
// about the calling client.
func InjectLoggingMetadata(ctx context.Context, log *logrus.Entry) *logrus.Entry {
	fields := logrus.Fields{}

	if userAgent, err := GetUserAgent(ctx); err == nil {
		fields["user_agent"] = userAgent.String()
		if userAgent.Product != "" {
			fields["client_product"] = userAgent.Product
			fields["client_version"] = userAgent.Version
		}
	}

	if ip, err := GetIPAddr(ctx); err == nil {
		fields["client_ip"] = ip
	}

	if len(fields) == 0 {
		return log
	}
	return log.WithFields(fields)
}
