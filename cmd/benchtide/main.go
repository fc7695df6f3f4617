// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/Benchtide/pkg/logging"
	"github.com/AleutianAI/Benchtide/pkg/ux"
)

var config Config

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &config); err != nil {
				log.Fatalf("Error parsing %s: %v", configPath, err)
			}
		case os.IsNotExist(err):
			// Defaults cover every command; a config file is optional.
		default:
			log.Fatalf("Error reading %s: %v", configPath, err)
		}
		config.applyDefaults()

		logger := logging.New(logging.Config{
			Level:   logging.ParseLevel(config.Logging.Level),
			Service: "benchtide",
		})
		slog.SetDefault(logger.Slog())

		if personalityLevel != "" {
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
		} else {
			ux.InitPersonality()
		}
	}
}
