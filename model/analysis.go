package model

import (
	"errors"
	"fmt"
	"time"
)

// RiskLevel is the severity assigned to a flagged clause
type RiskLevel string

const (
	RiskHigh          RiskLevel = "High"
	RiskMedium        RiskLevel = "Medium"
	RiskLow           RiskLevel = "Low"
	RiskInformational RiskLevel = "Informational"
)

// RiskLevels lists the accepted levels in descending severity
var RiskLevels = []RiskLevel{RiskHigh, RiskMedium, RiskLow, RiskInformational}

// Valid reports whether l is one of the four accepted levels
func (l RiskLevel) Valid() bool {
	for _, v := range RiskLevels {
		if l == v {
			return true
		}
	}
	return false
}

// Clause is a labeled excerpt of contract text
type Clause struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Risk is a flagged excerpt with a severity and a justification
type Risk struct {
	Level     RiskLevel `json:"level"`
	Clause    string    `json:"clause"`
	Reasoning string    `json:"reasoning"`
}

// AnalysisResult is the structured output of one analysis run.
// It is never modified after it is handed to a session.
type AnalysisResult struct {
	Summary string   `json:"summary"`
	Clauses []Clause `json:"clauses"`
	Risks   []Risk   `json:"risks"`
}

// Validate checks the result for shape problems the JSON decoder lets through
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return errors.New("result is nil")
	}
	if r.Clauses == nil {
		return errors.New("clauses missing")
	}
	if r.Risks == nil {
		return errors.New("risks missing")
	}
	for i, risk := range r.Risks {
		if !risk.Level.Valid() {
			return fmt.Errorf("risks[%d]: invalid level %q", i, risk.Level)
		}
	}
	return nil
}

// RunStatus is the tag of RunState
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunLoading   RunStatus = "loading"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunState is the analysis state of a session. Build it with the
// constructors below so Result is only set when succeeded and Error only
// when failed.
type RunState struct {
	Status     RunStatus       `json:"status"`
	RunID      string          `json:"run_id,omitempty"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func Idle() RunState {
	return RunState{Status: RunIdle}
}

func Loading(runID string, startedAt time.Time) RunState {
	return RunState{Status: RunLoading, RunID: runID, StartedAt: &startedAt}
}

func Succeeded(runID string, result *AnalysisResult, startedAt, finishedAt time.Time) RunState {
	return RunState{
		Status:     RunSucceeded,
		RunID:      runID,
		Result:     result,
		StartedAt:  &startedAt,
		FinishedAt: &finishedAt,
	}
}

// Failed builds a failed state. runID is empty when the run never started.
func Failed(runID, message string, finishedAt time.Time) RunState {
	return RunState{
		Status:     RunFailed,
		RunID:      runID,
		Error:      message,
		FinishedAt: &finishedAt,
	}
}

// Terminal reports whether the run has finished
func (s RunState) Terminal() bool {
	return s.Status == RunSucceeded || s.Status == RunFailed
}
