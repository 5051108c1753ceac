// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log/slog"
	"os"

	"github.com/kadirpekel/relay/pkg/config"
	"github.com/kadirpekel/relay/pkg/logger"
)

// setupLogger initializes the process logger. CLI flags win over the config
// file; the config file wins over defaults.
func setupLogger(cli *CLI, cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	levelStr := cfg.Level
	if cli.LogLevel != "" {
		levelStr = cli.LogLevel
	}
	format := cfg.Format
	if cli.LogFormat != "" {
		format = cli.LogFormat
	}
	logFile := cfg.Output
	if cli.LogFile != "" {
		logFile = cli.LogFile
	}

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, err
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" && logFile != "stderr" {
		file, closeFile, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, nil, err
		}
		output = file
		cleanup = closeFile
	}

	logger.Init(level, output, format)
	return logger.GetLogger(), cleanup, nil
}
