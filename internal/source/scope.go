package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutOfScope is returned for sources outside the allowed directory or buckets.
var ErrOutOfScope = errors.New("source is outside the allowed data directory and buckets")

// Scope limits which sources may be read on behalf of a remote caller.
// A zero Scope allows nothing.
type Scope struct {
	Root    string
	Buckets []string
}

// Resolve checks uri against the scope. Relative paths are taken from Root;
// the returned value is the path or URI to read.
func (s Scope) Resolve(uri string) (string, error) {
	if bucket, _, ok := ParseS3URI(uri); ok {
		for _, b := range s.Buckets {
			if b == bucket {
				return uri, nil
			}
		}
		return "", fmt.Errorf("%w: bucket %q", ErrOutOfScope, bucket)
	}
	if strings.HasPrefix(uri, "s3://") {
		return "", fmt.Errorf("%w: malformed S3 URI %q", ErrOutOfScope, uri)
	}
	if s.Root == "" {
		return "", fmt.Errorf("%w: %q", ErrOutOfScope, uri)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	path := uri
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return "", fmt.Errorf("%w: %q", ErrOutOfScope, uri)
	}

	// symlinks must not lead out of the root either
	if realRoot, err := filepath.EvalSymlinks(root); err == nil {
		if realPath, err := filepath.EvalSymlinks(path); err == nil && !within(realRoot, realPath) {
			return "", fmt.Errorf("%w: %q", ErrOutOfScope, uri)
		}
	}
	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
