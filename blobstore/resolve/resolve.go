// Package resolve maps output locations to blob stores.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/hupe1980/fpdb/blobstore"
	"github.com/hupe1980/fpdb/blobstore/minio"
	"github.com/hupe1980/fpdb/blobstore/s3"
)

var (
	// ErrUnsupportedScheme is returned for URI schemes without a store.
	ErrUnsupportedScheme = errors.New("resolve: unsupported scheme")
	// ErrMissingKey is returned when an object URI has no key.
	ErrMissingKey = errors.New("resolve: missing object key")
)

// Resolve returns the store holding location and the blob name within it.
//
// Supported forms:
//
//	s3://bucket/key      Amazon S3, default AWS credential chain
//	minio://bucket/key   MinIO, see minio.NewFromEnv
//	file:///path         local file
//	path                 local file
func Resolve(ctx context.Context, location string) (blobstore.Store, string, error) {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return local(location)
	}

	switch scheme {
	case "file":
		return local(rest)
	case "s3", "minio":
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", fmt.Errorf("resolve: %w", err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, "", fmt.Errorf("%w: %s", ErrMissingKey, location)
		}
		if scheme == "s3" {
			store, err := s3.New(ctx, u.Host)
			if err != nil {
				return nil, "", err
			}
			return store, key, nil
		}
		store, err := minio.NewFromEnv(u.Host, "")
		if err != nil {
			return nil, "", err
		}
		return store, key, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func local(path string) (blobstore.Store, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("%w: empty path", ErrMissingKey)
	}
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	return blobstore.NewLocalStore(dir), name, nil
}
