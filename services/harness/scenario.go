// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// millis converts a YAML millisecond count into a duration.
func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// scenarioValidate is the validator instance for scenario datatypes.
var scenarioValidate *validator.Validate

func init() {
	scenarioValidate = validator.New()
}

// Scenario is the YAML description of one evaluation run, consumed by
// the CLI and the HTTP service.
//
// Example:
//
//	evaluation:
//	  spec: qa_exact
//	  name: qa_exact_gpt4o
//	  dataset: qa_v2
//	run:
//	  parallel: true
//	  timeout_ms: 5000
//	  workers: 8
//	predictions:
//	  - "paris"
//	  - "london"
//	ground_truth:
//	  - "Paris"
//	  - "Berlin"
type Scenario struct {
	Evaluation ScenarioEvaluation `yaml:"evaluation" validate:"required"`
	Run        ScenarioRun        `yaml:"run"`
	// Predictions are the model outputs to score. Optional when the
	// caller supplies predictions out of band.
	Predictions []any `yaml:"predictions"`
	// GroundTruth overrides the dataset loader when present.
	GroundTruth []any `yaml:"ground_truth"`
}

// ScenarioEvaluation identifies the spec to run.
type ScenarioEvaluation struct {
	// Spec is the registered spec name to execute.
	Spec string `yaml:"spec" validate:"required,min=1"`
	// Name labels the produced Result. Defaults to the spec name plus
	// a short run id.
	Name string `yaml:"name"`
	// Dataset overrides the spec's dataset identifier when set.
	Dataset string `yaml:"dataset"`
}

// ScenarioRun carries runner options.
type ScenarioRun struct {
	Parallel  *bool `yaml:"parallel"`
	TimeoutMS int64 `yaml:"timeout_ms" validate:"gte=0"`
	Workers   int   `yaml:"workers" validate:"gte=0"`
}

// Validate checks the scenario against its struct tags.
func (s *Scenario) Validate() error {
	return scenarioValidate.Struct(s)
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(raw, &scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("validating scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// RunOptions converts the scenario's run section into runner options.
func (s *Scenario) RunOptions() []RunOption {
	opts := make([]RunOption, 0, 5)
	opts = append(opts, WithName(s.ResultName()))
	if s.GroundTruth != nil {
		opts = append(opts, WithGroundTruth(s.GroundTruth))
	}
	if s.Run.Parallel != nil {
		opts = append(opts, WithParallel(*s.Run.Parallel))
	}
	if s.Run.TimeoutMS > 0 {
		opts = append(opts, WithTimeout(millis(s.Run.TimeoutMS)))
	}
	if s.Run.Workers > 0 {
		opts = append(opts, WithWorkers(s.Run.Workers))
	}
	return opts
}

// ResultName resolves the label for the produced Result, generating a
// unique suffix when the scenario does not pin one.
func (s *Scenario) ResultName() string {
	if s.Evaluation.Name != "" {
		return s.Evaluation.Name
	}
	return fmt.Sprintf("%s_%s", s.Evaluation.Spec, uuid.NewString()[:8])
}
