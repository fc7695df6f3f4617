// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel controls how much styling the CLI emits.
type PersonalityLevel int

const (
	// PersonalityStandard is the default styled output.
	PersonalityStandard PersonalityLevel = iota
	// PersonalityMinimal keeps icons but drops color.
	PersonalityMinimal
	// PersonalityMachine emits plain greppable lines. Selected
	// automatically when stdout is not a terminal.
	PersonalityMachine
)

// Personality holds the active output settings.
type Personality struct {
	Level PersonalityLevel
}

var (
	personalityMu sync.RWMutex
	personality   = Personality{Level: PersonalityStandard}
)

// GetPersonality returns the current personality.
func GetPersonality() Personality {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return personality
}

// SetPersonalityLevel overrides the personality level.
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	personality.Level = level
}

// ParsePersonalityLevel converts a flag value into a level. Unknown
// values map to standard.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch s {
	case "machine":
		return PersonalityMachine
	case "minimal":
		return PersonalityMinimal
	default:
		return PersonalityStandard
	}
}

// InitPersonality picks a level from the environment: machine when
// piped, BENCHTIDE_OUTPUT when set, standard otherwise.
func InitPersonality() {
	if env := os.Getenv("BENCHTIDE_OUTPUT"); env != "" {
		SetPersonalityLevel(ParsePersonalityLevel(env))
		return
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		SetPersonalityLevel(PersonalityMachine)
		return
	}
	SetPersonalityLevel(PersonalityStandard)
}
