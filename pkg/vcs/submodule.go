// Package vcs reports the state of the git checkouts backing a build.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/outofforest/libexec"
)

// SubmoduleError reports a missing or corrupt submodule checkout. It is the
// only recoverable failure class in this module: a scheduler may mark the
// build failed and retry once the checkout is fixed.
type SubmoduleError struct {
	Dir   string
	Cause error
}

func (e *SubmoduleError) Error() string {
	return fmt.Sprintf("submodule %q is not usable: %s", e.Dir, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *SubmoduleError) Unwrap() error {
	return e.Cause
}

// Repo provides the repository-state inputs of the staleness decision.
type Repo interface {
	// CheckSubmodule verifies that dir is a populated checkout. An unusable
	// checkout comes back as *SubmoduleError.
	CheckSubmodule(ctx context.Context, dir string) error
	// Status returns a token describing the current state of the checkout.
	// Any change of the checkout changes the token.
	Status(ctx context.Context, dir string) (string, error)
}

// Git is a Repo backed by the git CLI.
type Git struct{}

// CheckSubmodule implements Repo.
func (Git) CheckSubmodule(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &SubmoduleError{Dir: dir, Cause: err}
	}
	if len(entries) == 0 {
		return &SubmoduleError{Dir: dir, Cause: errors.New("checkout is empty, run git submodule update --init")}
	}

	cmd := exec.Command("git", "-C", dir, "rev-parse", "--is-inside-work-tree")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := libexec.Exec(ctx, cmd); err != nil {
		return &SubmoduleError{Dir: dir, Cause: err}
	}

	return nil
}

// Status implements Repo. The token is the HEAD commit, suffixed with -dirty
// when the work tree has local modifications.
func (Git) Status(ctx context.Context, dir string) (string, error) {
	head := &bytes.Buffer{}
	cmdHead := exec.Command("git", "-C", dir, "rev-parse", "HEAD")
	cmdHead.Stdout = head

	porcelain := &bytes.Buffer{}
	cmdStatus := exec.Command("git", "-C", dir, "status", "--porcelain")
	cmdStatus.Stdout = porcelain

	if err := libexec.Exec(ctx, cmdHead, cmdStatus); err != nil {
		return "", errors.WithStack(err)
	}

	token := strings.TrimSpace(head.String())
	if strings.TrimSpace(porcelain.String()) != "" {
		token += "-dirty"
	}
	return token, nil
}
