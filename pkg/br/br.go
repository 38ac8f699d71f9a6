// Package br builds base root filesystem images with buildroot and decides
// when a previously built image is still valid.
package br

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/firesim/marshal/pkg/kconfig"
	"github.com/firesim/marshal/pkg/sigstore"
	"github.com/firesim/marshal/pkg/toolchain"
	"github.com/firesim/marshal/pkg/vcs"
	"github.com/outofforest/libexec"
	"github.com/outofforest/logger"
)

// DistroKind identifies the buildroot distro in workload descriptors.
const DistroKind = "br"

const (
	defaultName = "br"

	buildrootDirName  = "buildroot"
	rootfsFile        = "rootfs.ext2"
	toolFragFile      = "brToolKfrag"
	defconfigFile     = "brDefConfig"
	busyboxConfigFile = "busybox-config"
	mergeScript       = "merge_config.sh"
)

// Env locates the fixed directories a builder works in.
type Env struct {
	// BoardDir contains the buildroot checkout, merge_config.sh, the busybox
	// configuration and the overlay tree.
	BoardDir string
	// GenDir receives generated configuration fragments and driver state.
	GenDir string
	// ImageDir receives finished images.
	ImageDir string
}

func (e Env) buildrootDir() string {
	return filepath.Join(e.BoardDir, buildrootDirName)
}

// imageOutputDir is where buildroot leaves produced images. It holds at most
// one image at a time: every successful build moves rootfs.ext2 out of it.
func (e Env) imageOutputDir() string {
	return filepath.Join(e.buildrootDir(), "output", "images")
}

// Opts is the br-specific option set: an ordered list of configuration
// fragments layered on top of the captured defconfig.
type Opts struct {
	Configs kconfig.FragmentSet
}

// Workload describes a builder to an external task graph. The option
// snapshot is intentionally empty: the builder already owns its options and
// the descriptor must not introduce a second identity source.
type Workload struct {
	Name       string
	IsDistro   bool
	DistroKind string
	Opts       Opts
	Workdir    string
	Builder    *Builder
	Image      string
}

// Builder owns one fingerprint-identified base image build.
type Builder struct {
	env       Env
	opts      Opts
	toolchain toolchain.Detector
	repo      vcs.Repo

	name      string
	outputImg string
}

// New derives the builder identity from the option content: builders
// constructed from byte-identical fragment sets share a name and output
// path, so a cached image can be reused across runs and processes.
func New(env Env, opts Opts, detector toolchain.Detector, repo vcs.Repo) (*Builder, error) {
	name := defaultName
	fp, ok, err := kconfig.Fingerprint(opts.Configs)
	if err != nil {
		return nil, err
	}
	if ok {
		name += "." + fp
	}

	return &Builder{
		env:       env,
		opts:      opts,
		toolchain: detector,
		repo:      repo,
		name:      name,
		outputImg: filepath.Join(env.ImageDir, name+".img"),
	}, nil
}

// Name returns the builder identity, "br" or "br.<fingerprint>".
func (b *Builder) Name() string {
	return b.name
}

// OutputImage returns the path the finished image is placed at.
func (b *Builder) OutputImage() string {
	return b.outputImg
}

// Workload returns the descriptor registering this builder as a buildable
// unit in a larger dependency graph.
func (b *Builder) Workload() Workload {
	return Workload{
		Name:       b.name,
		IsDistro:   true,
		DistroKind: DistroKind,
		Opts:       Opts{Configs: kconfig.FragmentSet{}},
		Workdir:    b.env.BoardDir,
		Builder:    b,
		Image:      b.outputImg,
	}
}

// Configure prepares the final buildroot configuration: it pins toolchain
// compatibility in a generated fragment, captures the defconfig baseline and
// merges baseline, toolchain fragment and the option fragments, in that
// order. After it returns it is safe to run make in the buildroot directory.
func (b *Builder) Configure(ctx context.Context) error {
	vers, err := b.toolchain.Versions(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(b.env.GenDir, 0o700); err != nil {
		return errors.WithStack(err)
	}

	// Buildroot is picky about the build environment, so compatibility with
	// the ambient toolchain is pinned explicitly.
	toolFrag := filepath.Join(b.env.GenDir, toolFragFile)
	if err := os.WriteFile(toolFrag, toolchainFragment(vers, runtime.NumCPU()), 0o600); err != nil {
		return errors.WithStack(err)
	}

	logger.Get(ctx).Info("Capturing buildroot defconfig", zap.String("builder", b.name))

	cmd := exec.Command("make", "defconfig")
	cmd.Dir = b.env.buildrootDir()
	if err := libexec.Exec(ctx, cmd); err != nil {
		return errors.WithStack(err)
	}

	// Capturing the defconfig as a fragment allows bumping buildroot
	// independently of the option fragments.
	defconfig := filepath.Join(b.env.GenDir, defconfigFile)
	if err := copyFile(defconfig, filepath.Join(b.env.buildrootDir(), ".config"), 0o600); err != nil {
		return err
	}

	frags := kconfig.Merge(kconfig.FragmentSet{defconfig, toolFrag}, b.opts.Configs)

	mergeCmd := exec.Command(filepath.Join(b.env.BoardDir, mergeScript), frags...)
	mergeCmd.Dir = b.env.buildrootDir()
	return errors.WithStack(libexec.Exec(ctx, mergeCmd))
}

// BuildBaseImage runs one full build attempt: submodule check, configure,
// make, then relocation of the produced image to OutputImage. The relocation
// is a move, not a copy, so buildroot's output directory never accumulates
// stale images and no half-written artifact appears at the destination.
//
// A broken buildroot checkout comes back as *vcs.SubmoduleError so callers
// can treat it as a failed-but-retryable task. Every other failure
// propagates as is.
func (b *Builder) BuildBaseImage(ctx context.Context) error {
	if err := b.repo.CheckSubmodule(ctx, b.env.buildrootDir()); err != nil {
		return err
	}

	if err := b.Configure(ctx); err != nil {
		return err
	}

	logger.Get(ctx).Info("Building base image",
		zap.String("builder", b.name), zap.String("image", b.outputImg))

	// Buildroot rejects some common PERL_MM_OPT configurations. The variable
	// is dropped from the child environment only; the ambient environment is
	// never touched.
	cmd := exec.Command("make")
	cmd.Dir = b.env.buildrootDir()
	cmd.Env = environWithout("PERL_MM_OPT")
	if err := libexec.Exec(ctx, cmd); err != nil {
		return errors.WithStack(err)
	}

	if err := os.MkdirAll(b.env.ImageDir, 0o700); err != nil {
		return errors.WithStack(err)
	}
	return moveFile(b.outputImg, filepath.Join(b.env.imageOutputDir(), rootfsFile))
}

// FileDeps lists auxiliary files whose modification invalidates the image in
// addition to the fragment set: the static busybox configuration and the
// builder binary itself, which changes exactly when the build logic does.
func (b *Builder) FileDeps() ([]string, error) {
	bin, err := os.Executable()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return []string{filepath.Join(b.env.BoardDir, busyboxConfigFile), bin}, nil
}

// UpToDate evaluates the non-file invalidation signals fresh: the state of
// the buildroot checkout and the fingerprint of the option set. The signal
// store compares them against the values recorded after the last successful
// build; the image is current only when no signal changed, these two or the
// file evidence from FileDeps.
func (b *Builder) UpToDate(ctx context.Context) ([]sigstore.Signal, error) {
	status, err := b.repo.Status(ctx, b.env.buildrootDir())
	if err != nil {
		return nil, err
	}

	fp, _, err := kconfig.Fingerprint(b.opts.Configs)
	if err != nil {
		return nil, err
	}

	return []sigstore.Signal{
		{Key: b.name + "/buildroot", Value: status},
		{Key: b.name + "/opts", Value: fp},
	}, nil
}

func toolchainFragment(v toolchain.Versions, jobs int) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "BR2_TOOLCHAIN_EXTERNAL_HEADERS_%s_%s=y\n", v.LinuxMajor, v.LinuxMinor)
	fmt.Fprintf(buf, "BR2_TOOLCHAIN_HEADERS_AT_LEAST_%s_%s=y\n", v.LinuxMajor, v.LinuxMinor)
	fmt.Fprintf(buf, "BR2_TOOLCHAIN_HEADERS_AT_LEAST=\"%s.%s\"\n", v.LinuxMajor, v.LinuxMinor)
	fmt.Fprintf(buf, "BR2_TOOLCHAIN_GCC_AT_LEAST_%s=y\n", v.GCC)
	fmt.Fprintf(buf, "BR2_TOOLCHAIN_GCC_AT_LEAST=\"%s\"\n", v.GCC)
	fmt.Fprintf(buf, "BR2_TOOLCHAIN_EXTERNAL_GCC_%s=y\n", v.GCC)
	fmt.Fprintf(buf, "BR2_JLEVEL=%d\n", jobs)
	return buf.Bytes()
}
