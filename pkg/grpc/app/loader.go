package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// FileLoader fetches the contents of a file URL for a single scheme.
type FileLoader interface {
	Load(ctx context.Context, u *url.URL) ([]byte, error)
}

var (
	loadersMu sync.RWMutex
	loaders   = map[string]FileLoader{
		"":     localLoader{},
		"file": localLoader{},
		"s3":   &s3Loader{},
	}
)

// RegisterFileLoader adds a loader for scheme. It panics if the scheme is
// already handled.
func RegisterFileLoader(scheme string, loader FileLoader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()

	if _, exists := loaders[scheme]; exists {
		panic(fmt.Sprintf("file loader already registered for scheme %q", scheme))
	}
	loaders[scheme] = loader
}

// LoadFile reads fileURL with the loader registered for its scheme. A bare
// path is read from the local filesystem.
func LoadFile(ctx context.Context, fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file url %s", fileURL)
	}

	loadersMu.RLock()
	loader, ok := loaders[u.Scheme]
	loadersMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("no file loader for scheme %q", u.Scheme)
	}

	b, err := loader.Load(ctx, u)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", fileURL)
	}
	return b, nil
}

type localLoader struct{}

func (localLoader) Load(_ context.Context, u *url.URL) ([]byte, error) {
	return os.ReadFile(u.Path)
}

// s3Loader reads s3://bucket/key objects using the default AWS credential
// chain, resolved on first use.
type s3Loader struct {
	once   sync.Once
	client *s3.Client
	err    error
}

func (l *s3Loader) Load(ctx context.Context, u *url.URL) ([]byte, error) {
	l.once.Do(func() {
		cfg, err := external.LoadDefaultAWSConfig()
		if err != nil {
			l.err = errors.Wrap(err, "error loading aws config")
			return
		}
		l.client = s3.New(cfg)
	})
	if l.err != nil {
		return nil, l.err
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, errors.New("s3 url must name a bucket and key")
	}

	resp, err := l.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	}).Send(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
