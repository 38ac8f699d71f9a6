package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/firesim/marshal/pkg/br"
	"github.com/firesim/marshal/pkg/sigstore"
	"github.com/firesim/marshal/pkg/toolchain"
	"github.com/firesim/marshal/pkg/vcs"
	"github.com/firesim/marshal/pkg/wl"
	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
)

func buildCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "build <workload>...",
		Short: "Build the base images of the given workloads, skipping the ones that are up to date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := envFromConfig(v)
			if err != nil {
				return err
			}
			linuxDir, err := filepath.Abs(v.GetString("linux-dir"))
			if err != nil {
				return err
			}
			store, err := sigstore.Open(v.GetString("state"))
			if err != nil {
				return err
			}

			detector := toolchain.CommandDetector{
				LinuxDir:      linuxDir,
				CrossCompiler: v.GetString("cross-compiler"),
			}

			// Builders from byte-identical option sets share an identity,
			// so keying by name leaves at most one builder per identity.
			builders := map[string]*br.Builder{}
			for _, wlPath := range args {
				cfg, err := wl.Load(wlPath)
				if err != nil {
					return err
				}
				b, err := br.New(env, *cfg.Distro.BR, detector, vcs.Git{})
				if err != nil {
					return err
				}
				builders[b.Name()] = b
			}

			stale, err := staleBuilders(ctx, lo.Values(builders), store)
			if err != nil {
				return err
			}

			buildErr := buildAll(ctx, stale, store)
			if saveErr := store.Save(); saveErr != nil && buildErr == nil {
				buildErr = saveErr
			}
			return buildErr
		},
	}
}

// staleBuilders evaluates the invalidation signals of every builder
// concurrently (pure reads, safe per identity) and returns the ones whose
// image needs a rebuild, sorted by name.
func staleBuilders(
	ctx context.Context,
	builders []*br.Builder,
	store *sigstore.Store,
) ([]*br.Builder, error) {
	mu := sync.Mutex{}
	stale := make([]*br.Builder, 0, len(builders))

	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for _, b := range builders {
			spawn("signals."+b.Name(), parallel.Continue, func(ctx context.Context) error {
				sigs, err := currentSignals(ctx, b)
				if err != nil {
					return err
				}

				if !store.Changed(sigs...) && imageExists(b) {
					logger.Get(ctx).Info("Image up to date", zap.String("builder", b.Name()))
					return nil
				}

				mu.Lock()
				stale = append(stale, b)
				mu.Unlock()
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].Name() < stale[j].Name()
	})
	return stale, nil
}

// buildAll rebuilds the stale identities one at a time: all of them share
// the single buildroot tree, so builds must not overlap. Submodule failures
// are collected instead of aborting, everything else is fatal.
func buildAll(ctx context.Context, stale []*br.Builder, store *sigstore.Store) error {
	log := logger.Get(ctx)
	failed := []string{}

	for _, b := range stale {
		if err := b.BuildBaseImage(ctx); err != nil {
			var subErr *vcs.SubmoduleError
			if errors.As(err, &subErr) {
				log.Error("Build failed, fix the checkout and retry",
					zap.String("builder", b.Name()), zap.Error(subErr))
				failed = append(failed, b.Name())
				continue
			}
			return err
		}

		// Signals are re-evaluated after the build so the recorded state
		// describes exactly what was built.
		sigs, err := currentSignals(ctx, b)
		if err != nil {
			return err
		}
		store.Record(sigs...)

		log.Info("Image built", zap.String("builder", b.Name()), zap.String("image", b.OutputImage()))
	}

	if len(failed) > 0 {
		return errors.Errorf("builds failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// currentSignals combines the builder's two fresh signals with the stamp
// over its file dependencies.
func currentSignals(ctx context.Context, b *br.Builder) ([]sigstore.Signal, error) {
	sigs, err := b.UpToDate(ctx)
	if err != nil {
		return nil, err
	}

	deps, err := b.FileDeps()
	if err != nil {
		return nil, err
	}
	stamp, err := sigstore.StampFiles(deps)
	if err != nil {
		return nil, err
	}

	return append(sigs, sigstore.Signal{Key: b.Name() + "/files", Value: stamp}), nil
}

func imageExists(b *br.Builder) bool {
	_, err := os.Stat(b.OutputImage())
	return err == nil
}
