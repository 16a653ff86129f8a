/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rulego/weaver/api/types"
	_ "github.com/rulego/weaver/builtin/aspect"
	"github.com/rulego/weaver/kernel"
	"github.com/rulego/weaver/pointcut"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "weaver",
		Short: "Aspect weaving tooling",
		Long: `weaver rewrites application sources so that instantiations and method bodies go
through the aspect dispatcher, and inspects pointcuts and registered advisors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewTransformCommand())
	rootCmd.AddCommand(NewWarmupCommand())
	rootCmd.AddCommand(NewPointcutCommand())
	rootCmd.AddCommand(NewAdvisorsCommand())
	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "weaver version: %s\nGit commit: %s\n", Version, GitCommit)
		},
	}
}

// kernelFlags adds the kernel option flags shared by the commands that initialize a kernel.
func kernelFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "config file (default ./weaver.yaml)")
	cmd.Flags().String("app-dir", ".", "application root directory")
	cmd.Flags().String("cache-dir", "", "on-disk artifact cache directory")
	cmd.Flags().Bool("debug", false, "debug mode: no caching, verbose warnings")
	cmd.Flags().StringSlice("aspects", nil, "built-in aspects to enable by name")
	cmd.Flags().StringSlice("include", nil, "include path patterns")
	cmd.Flags().StringSlice("exclude", nil, "exclude path patterns")
	cmd.Flags().String("lexer", "", "source lexer: scanner (default) or treesitter")
}

// initKernel merges config file, environment and flags and initializes a kernel.
func initKernel(cmd *cobra.Command) (*kernel.Kernel, error) {
	v := viper.New()
	file, _ := cmd.Flags().GetString("config")
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	if err := loadConfig(v, file); err != nil {
		return nil, err
	}
	logger, err := newLogger(v.GetBool("debug"))
	if err != nil {
		return nil, err
	}
	k := kernel.New()
	if err := k.Init(kernelOptions(v), types.WithLogger(logger)); err != nil {
		return nil, err
	}
	return k, nil
}

// NewTransformCommand creates the transform command
func NewTransformCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform <file>",
		Short: "Print the woven source of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := initKernel(cmd)
			if err != nil {
				return err
			}
			defer k.Close()
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			artifact, err := k.Weave(args[0], source)
			if err != nil {
				return err
			}
			for _, w := range artifact.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			_, err = cmd.OutOrStdout().Write(artifact.Source)
			return err
		},
	}
	kernelFlags(cmd)
	return cmd
}

// NewWarmupCommand creates the warmup command
func NewWarmupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Weave every included file and fill the artifact cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := initKernel(cmd)
			if err != nil {
				return err
			}
			defer k.Close()
			if k.Config().CacheDir == "" {
				return fmt.Errorf("warmup needs a cache directory (--cache-dir)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			n, err := k.Warmup(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "woven %d files into %s\n", n, k.Config().CacheDir)
			return err
		},
	}
	kernelFlags(cmd)
	return cmd
}

// NewPointcutCommand creates the pointcut command
func NewPointcutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pointcut <expression> [join point...]",
		Short: "Check a pointcut expression and test it against join points",
		Long: `Compiles the expression and reports the position of the first error. Each further
argument is a join point to match: Type->method, Type::staticMethod, Type->$property or Type
for the constructor.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pointcut.Parse(args[0], nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: %s\n", p)
			for _, arg := range args[1:] {
				jp := parseJoinPoint(arg)
				result := "no match"
				if p.Matches(jp) {
					result = "match"
				}
				fmt.Fprintf(out, "%s: %s\n", jp, result)
			}
			return nil
		},
	}
}

// parseJoinPoint reads the join point notation of the pointcut command. Members are public.
func parseJoinPoint(s string) *types.JoinPoint {
	jp := &types.JoinPoint{Kind: types.KindConstructor, Visibility: types.Public}
	typ, member, static := s, "", false
	if i := strings.Index(s, "::"); i >= 0 {
		typ, member, static = s[:i], s[i+2:], true
	} else if i := strings.Index(s, "->"); i >= 0 {
		typ, member = s[:i], s[i+2:]
	}
	jp.Type = types.TrimName(typ)
	if member == "" {
		return jp
	}
	jp.Static = static
	jp.Kind = types.KindMethod
	if strings.HasPrefix(member, "$") {
		jp.Kind = types.KindProperty
	}
	jp.Member = strings.TrimSuffix(strings.TrimPrefix(member, "$"), "()")
	return jp
}

// NewAdvisorsCommand creates the advisors command
func NewAdvisorsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisors",
		Short: "Export the registered advisors as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := initKernel(cmd)
			if err != nil {
				return err
			}
			defer k.Close()
			return k.ExportAdvisors(cmd.OutOrStdout())
		},
	}
	kernelFlags(cmd)
	return cmd
}
