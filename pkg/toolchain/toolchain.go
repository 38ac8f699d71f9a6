// Package toolchain discovers the versions of the cross toolchain a build
// has to be compatible with.
package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/outofforest/libexec"
)

// Versions is the toolchain compatibility triple baked into generated
// configuration fragments.
type Versions struct {
	LinuxMajor string
	LinuxMinor string
	GCC        string
}

// Detector reports the versions of the ambient toolchain.
type Detector interface {
	Versions(ctx context.Context) (Versions, error)
}

// CommandDetector asks the tools themselves: the header version comes from
// `make kernelversion` in the linux source tree, the compiler version from
// the cross compiler's -dumpversion.
type CommandDetector struct {
	LinuxDir      string
	CrossCompiler string
}

// Versions implements Detector.
func (d CommandDetector) Versions(ctx context.Context) (Versions, error) {
	kernelOut := &bytes.Buffer{}
	cmdKernel := exec.Command("make", "-s", "-C", d.LinuxDir, "kernelversion")
	cmdKernel.Stdout = kernelOut

	gccOut := &bytes.Buffer{}
	cmdGCC := exec.Command(d.CrossCompiler, "-dumpversion")
	cmdGCC.Stdout = gccOut

	if err := libexec.Exec(ctx, cmdKernel, cmdGCC); err != nil {
		return Versions{}, errors.WithStack(err)
	}

	major, minor, err := parseKernelVersion(kernelOut.String())
	if err != nil {
		return Versions{}, err
	}
	gcc, err := parseGCCMajor(gccOut.String())
	if err != nil {
		return Versions{}, err
	}

	return Versions{LinuxMajor: major, LinuxMinor: minor, GCC: gcc}, nil
}

func parseKernelVersion(out string) (string, string, error) {
	version := strings.TrimSpace(out)
	parts := strings.Split(version, ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("unexpected kernel version %q", version)
	}
	return parts[0], parts[1], nil
}

func parseGCCMajor(out string) (string, error) {
	major, _, _ := strings.Cut(strings.TrimSpace(out), ".")
	if major == "" {
		return "", errors.Errorf("unexpected gcc version %q", out)
	}
	return major, nil
}
