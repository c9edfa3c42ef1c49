package domain

import "time"

type SkipReason string

const (
	SkipTooRecent SkipReason = "too recent"
	SkipTooOld    SkipReason = "too old"
	SkipNoEmail   SkipReason = "no email"
)

type RunTrigger string

const (
	TriggerManual    RunTrigger = "manual"
	TriggerScheduled RunTrigger = "scheduled"
)

type ProcessingReport struct {
	RunID             string             `json:"runId"`
	Trigger           RunTrigger         `json:"trigger,omitempty"`
	Success           bool               `json:"success"`
	TotalProcessed    int                `json:"totalProcessed"`
	TotalCreated      int                `json:"totalCreated"`
	TotalSkipped      int                `json:"totalSkipped"`
	TotalFailed       int                `json:"totalFailed"`
	Skipped           map[SkipReason]int `json:"skipped,omitempty"`
	Failures          []CartFailure      `json:"failures,omitempty"`
	ConfigurationUsed Configuration      `json:"configurationUsed"`
	Message           string             `json:"message"`
	Error             string             `json:"error,omitempty"`
	StartedAt         time.Time          `json:"startedAt"`
	FinishedAt        time.Time          `json:"finishedAt"`
}

type CartFailure struct {
	CartID string `json:"cartId"`
	Reason string `json:"reason"`
}
