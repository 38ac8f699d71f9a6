package main

import (
	"path/filepath"

	"github.com/ridge/must"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/firesim/marshal/pkg/br"
)

func rootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "marshal",
		Short:         "Incremental buildroot base-image driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("board-dir", ".",
		"Directory containing the buildroot checkout, merge_config.sh and the overlay tree")
	flags.String("gen-dir", "gen", "Directory receiving generated configuration fragments")
	flags.String("image-dir", "images", "Directory receiving finished images")
	flags.String("state", "gen/state.json", "Path of the invalidation-signal store")
	flags.String("linux-dir", "linux", "Linux source tree used for header version discovery")
	flags.String("cross-compiler", "riscv64-unknown-linux-gnu-gcc", "Cross compiler queried for its version")
	must.OK(v.BindPFlags(flags))
	v.SetEnvPrefix("MARSHAL")
	v.AutomaticEnv()

	cmd.AddCommand(buildCmd(v), bootScriptCmd(v), stripUARTCmd())
	return cmd
}

func envFromConfig(v *viper.Viper) (br.Env, error) {
	var env br.Env
	for _, dir := range []struct {
		key string
		dst *string
	}{
		{key: "board-dir", dst: &env.BoardDir},
		{key: "gen-dir", dst: &env.GenDir},
		{key: "image-dir", dst: &env.ImageDir},
	} {
		abs, err := filepath.Abs(v.GetString(dir.key))
		if err != nil {
			return br.Env{}, err
		}
		*dir.dst = abs
	}
	return env, nil
}
