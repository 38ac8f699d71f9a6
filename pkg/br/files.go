package br

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// environWithout returns a copy of the process environment with the named
// variables removed. The ambient environment is left untouched.
func environWithout(names ...string) []string {
	env := os.Environ()
	filtered := make([]string, 0, len(env))
loop:
	for _, kv := range env {
		for _, name := range names {
			if strings.HasPrefix(kv, name+"=") {
				continue loop
			}
		}
		filtered = append(filtered, kv)
	}
	return filtered
}

func copyFile(dst, src string, mode os.FileMode) error {
	srcF, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer srcF.Close()

	dstF, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := io.Copy(dstF, srcF); err != nil {
		_ = dstF.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(dstF.Close())
}

// moveFile relocates src to dst, leaving nothing at src. When the rename
// crosses filesystems the content goes through dst.tmp first, so a failure
// never leaves a half-written file at dst.
func moveFile(dst, src string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, unix.EXDEV) {
		return errors.WithStack(err)
	}

	tmp := dst + ".tmp"
	if err := copyFile(tmp, src, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Remove(src))
}
