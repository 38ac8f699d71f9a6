package vcs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCheckSubmoduleMissingDir(t *testing.T) {
	err := Git{}.CheckSubmodule(context.Background(), filepath.Join(t.TempDir(), "buildroot"))
	require.Error(t, err)

	var subErr *SubmoduleError
	require.True(t, errors.As(err, &subErr))
	require.Contains(t, subErr.Error(), "buildroot")
}

func TestCheckSubmoduleEmptyDir(t *testing.T) {
	dir := t.TempDir()

	err := Git{}.CheckSubmodule(context.Background(), dir)
	require.Error(t, err)

	var subErr *SubmoduleError
	require.True(t, errors.As(err, &subErr))
	require.Equal(t, dir, subErr.Dir)
}

func TestSubmoduleErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &SubmoduleError{Dir: "/some/dir", Cause: cause}

	require.ErrorIs(t, err, cause)
}
