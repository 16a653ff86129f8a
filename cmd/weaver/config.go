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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loadConfig reads weaver.yaml from the working directory, or the file given by --config,
// then WEAVER_* environment variables, then the flags bound to v.
func loadConfig(v *viper.Viper, file string) error {
	v.SetDefault("debug", false)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("weaver")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("weaver")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// bindFlags binds the kernel option flags of cmd to v.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"appDir":       "app-dir",
		"cacheDir":     "cache-dir",
		"debug":        "debug",
		"aspects":      "aspects",
		"includePaths": "include",
		"excludePaths": "exclude",
		"lexer":        "lexer",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// kernelOptions builds the kernel init options from the merged configuration.
func kernelOptions(v *viper.Viper) map[string]any {
	options := map[string]any{
		"appDir": v.GetString("appDir"),
		"debug":  v.GetBool("debug"),
	}
	if dir := v.GetString("cacheDir"); dir != "" {
		options["cacheDir"] = dir
	}
	if lexer := v.GetString("lexer"); lexer != "" {
		options["lexer"] = lexer
	}
	if autoload := v.GetStringMapString("autoload"); len(autoload) > 0 {
		options["autoload"] = autoload
	}
	for key, value := range map[string][]string{
		"includePaths": v.GetStringSlice("includePaths"),
		"excludePaths": v.GetStringSlice("excludePaths"),
		"aspects":      v.GetStringSlice("aspects"),
	} {
		if len(value) > 0 {
			options[key] = value
		}
	}
	return options
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		config.Level.SetLevel(zap.DebugLevel)
	}
	return config.Build()
}
