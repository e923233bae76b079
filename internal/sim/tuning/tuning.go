// Package tuning holds the behavioral knobs of the simulation:
// perception ranges, claim and carry timeouts, history depth.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// PerceptRadius is the Manhattan radius of direct grid perception.
	PerceptRadius int `yaml:"percept_radius"`
	// KnowledgeRadius bounds shared-store queries during deliberation.
	KnowledgeRadius int `yaml:"knowledge_radius"`
	// ClaimTTLTicks releases claims not refreshed within this many
	// ticks. 0 disables expiry.
	ClaimTTLTicks int `yaml:"claim_ttl_ticks"`
	// CarryTimeoutTicks is how long a drone may hold a single
	// unpaired item before it is labeled stalled.
	CarryTimeoutTicks int `yaml:"carry_timeout_ticks"`
	// ActionHistoryLen bounds the per-agent action history kept for
	// behavior metrics.
	ActionHistoryLen int `yaml:"action_history_len"`
}

func Defaults() Tuning {
	return Tuning{
		PerceptRadius:     1,
		KnowledgeRadius:   8,
		ClaimTTLTicks:     50,
		CarryTimeoutTicks: 50,
		ActionHistoryLen:  32,
	}
}

// Normalized fills unset fields from defaults. Explicit zero means
// unset for every knob except ClaimTTLTicks, which uses -1 to disable.
func (t Tuning) Normalized() Tuning {
	d := Defaults()
	if t.PerceptRadius <= 0 {
		t.PerceptRadius = d.PerceptRadius
	}
	if t.KnowledgeRadius <= 0 {
		t.KnowledgeRadius = d.KnowledgeRadius
	}
	if t.ClaimTTLTicks == 0 {
		t.ClaimTTLTicks = d.ClaimTTLTicks
	}
	if t.ClaimTTLTicks < 0 {
		t.ClaimTTLTicks = 0
	}
	if t.CarryTimeoutTicks <= 0 {
		t.CarryTimeoutTicks = d.CarryTimeoutTicks
	}
	if t.ActionHistoryLen <= 0 {
		t.ActionHistoryLen = d.ActionHistoryLen
	}
	return t
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
