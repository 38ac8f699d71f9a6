package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/firesim/marshal/pkg/br"
	"github.com/outofforest/logger"
)

func bootScriptCmd(v *viper.Viper) *cobra.Command {
	var script string
	cmd := &cobra.Command{
		Use:   "bootscript [-- <arg>...]",
		Short: "Embed a boot-time workload script into the overlay tree",
		Long: "Embed a boot-time workload script into the overlay tree packaged into the " +
			"next image. Without --script the current script is replaced by an empty " +
			"placeholder, disabling the workload.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromConfig(v)
			if err != nil {
				return err
			}

			if script != "" {
				script, err = filepath.Abs(script)
				if err != nil {
					return err
				}
			}

			overlay, err := env.SetBootScript(script, args)
			if err != nil {
				return err
			}

			logger.Get(cmd.Context()).Info("Overlay updated", zap.String("overlay", overlay))
			return nil
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "Script to run at boot; omit to remove the current one")
	return cmd
}

func stripUARTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip-uart [<log-file>]",
		Short: "Print console output captured between the workload start and completion sentinels",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := io.Reader(cmd.InOrStdin())
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.WithStack(err)
				}
				defer f.Close()
				in = f
			}

			lines := []string{}
			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return errors.WithStack(err)
			}

			for _, line := range br.StripUART(lines) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
