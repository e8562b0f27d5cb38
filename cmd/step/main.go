// Package main is the entry point for the non-interactive step CLI: a
// load+call driver standing in for the REPL/debugger UX spec.md excludes
// from the core module.
package main

import (
	"fmt"
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ianhorswill/step/module"
)

var (
	logLevel   string
	configPath string
	logger     hclog.Logger
	mod        *module.Module
	fcfg       *fileConfig
)

var rootCmd = &cobra.Command{
	Use:   "step",
	Short: "Load and run Step programs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:  "step",
			Level: hclog.LevelFromString(logLevel),
			Color: hclog.AutoColor,
		})
		opts := []module.Option{module.WithLogger(logger)}
		if configPath != "" {
			c, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			fcfg = c
			opts = applyFileConfig(fcfg, opts)
		}
		mod = module.New(opts...)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file (search limit, extra load paths, group allow-list)")
	rootCmd.AddCommand(loadCmd, callCmd, assertCmd, lintCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadAll loads path plus any extraLoadPaths named in the config file, then
// resolves declaration groups (restricted to the config file's allow-list,
// if any).
func loadAll(path string) error {
	if err := mod.LoadDirectory(path); err != nil {
		return err
	}
	var allowed []string
	if fcfg != nil {
		for _, extra := range fcfg.ExtraLoadPaths {
			if err := mod.LoadDirectory(extra); err != nil {
				return err
			}
		}
		allowed = fcfg.AllowedGroups
	}
	return mod.ResolveDeclarationGroups(allowed...)
}

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load every .step/.csv/.tsv source file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadAll(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %s\n", args[0])
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <path> <task> [args...]",
	Short: "Load a directory and call one task, printing its rendered text",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadAll(args[0]); err != nil {
			return err
		}
		callArgs := parseArgs(args[2:])
		text, ok, err := mod.Call(args[1], callArgs...)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("step: call to %s failed", args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var assertCmd = &cobra.Command{
	Use:   "assert <path> <source>",
	Short: "Load a directory, then compile an extra snippet of source against it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadAll(args[0]); err != nil {
			return err
		}
		if err := mod.AddDefinitions(args[1]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var lintCmd = &cobra.Command{
	Use:   "lint <path>",
	Short: "Load a directory and report undefined-task / unused-task warnings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadAll(args[0]); err != nil {
			return err
		}
		warnings, err := mod.Lint()
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintln(cmd.OutOrStdout(), w.String())
		}
		if len(warnings) > 0 {
			os.Exit(1)
		}
		return nil
	},
}
