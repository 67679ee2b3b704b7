package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "oct.csv"), []byte(sampleCSV), 0o644))
	scope := Scope{Root: root, Buckets: []string{"curves"}}

	path, err := scope.Resolve("oct.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "oct.csv"), path)

	path, err = scope.Resolve(filepath.Join(root, "sub", "..", "oct.csv"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "oct.csv"), path)

	uri, err := scope.Resolve("s3://curves/oct.csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://curves/oct.csv", uri)

	for _, bad := range []string{
		"/etc/hostname",
		"../oct.csv",
		"sub/../../oct.csv",
		"s3://other/oct.csv",
		"s3://curves",
	} {
		_, err := scope.Resolve(bad)
		assert.True(t, errors.Is(err, ErrOutOfScope), bad)
	}
}

func TestScopeRejectsSymlinkOut(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.csv")
	require.NoError(t, os.WriteFile(target, []byte(sampleCSV), 0o644))
	if err := os.Symlink(target, filepath.Join(root, "link.csv")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := Scope{Root: root}.Resolve("link.csv")
	assert.True(t, errors.Is(err, ErrOutOfScope))
}

func TestZeroScopeAllowsNothing(t *testing.T) {
	_, err := Scope{}.Resolve("oct.csv")
	assert.True(t, errors.Is(err, ErrOutOfScope))
	_, err = Scope{}.Resolve("s3://curves/oct.csv")
	assert.True(t, errors.Is(err, ErrOutOfScope))
}
