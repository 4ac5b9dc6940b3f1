// Copyright 2025 Google LLC
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

// Package envconfig reads the configuration of the rewrite driver from the environment.
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns an environment variable stripped of leading and trailing quotes and spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level of the rewrite driver.
// TENSORFOLD_DEBUG=true enables debug logs. An integer n sets the level to -4*n.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("TENSORFOLD_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Uint returns a function reading an unsigned integer with a default value.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// MaxIterations is the default maximum number of passes of the rewrite driver over a graph.
var MaxIterations = Uint("TENSORFOLD_MAX_ITERATIONS", 10)
