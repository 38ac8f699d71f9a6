// Package wl loads workload configuration files and resolves them into
// typed distro options.
package wl

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/firesim/marshal/pkg/br"
	"github.com/firesim/marshal/pkg/kconfig"
)

// Config is a loaded workload configuration.
type Config struct {
	Name    string
	Workdir string
	Distro  Distro
}

// Distro is the tagged variant over known distro kinds. Exactly one branch
// is set, decided and validated once at load time.
type Distro struct {
	Kind string
	BR   *br.Opts
}

type rawConfig struct {
	Name   string
	Distro struct {
		Name string
		Opts struct {
			Configs []string
		}
	}
}

// Load reads a workload file (yaml or json), validates the distro kind and
// normalizes relative fragment paths against the workload's directory. Every
// fragment must exist at load time.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.WithStack(err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, errors.Wrapf(err, "workload %q is malformed", path)
	}

	workdir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Config{}, errors.WithStack(err)
	}

	cfg := Config{Name: raw.Name, Workdir: workdir}
	if cfg.Name == "" {
		base := filepath.Base(path)
		cfg.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	switch raw.Distro.Name {
	case br.DistroKind:
		configs := make(kconfig.FragmentSet, 0, len(raw.Distro.Opts.Configs))
		for _, c := range raw.Distro.Opts.Configs {
			if !filepath.IsAbs(c) {
				c = filepath.Join(workdir, c)
			}
			if _, err := os.Stat(c); err != nil {
				return Config{}, errors.Wrapf(err, "fragment of workload %q", path)
			}
			configs = append(configs, c)
		}
		cfg.Distro = Distro{Kind: br.DistroKind, BR: &br.Opts{Configs: configs}}
	default:
		return Config{}, errors.Errorf("unknown distro %q in workload %q", raw.Distro.Name, path)
	}

	return cfg, nil
}
