package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Steps of the launch sequence, in order. Step records how far a launch
// got before finishing or failing.
const (
	StepResolve   = "resolve"
	StepEnsureEnv = "ensure-env"
	StepInstall   = "install"
	StepRun       = "run"
	StepDone      = "done"
)

// Launch is one recorded run of the bootstrap sequence.
type Launch struct {
	ID         snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	EntryPoint string       `gorm:"column:entry_point" json:"entry_point"`
	Step       string       `gorm:"column:step" json:"step"`
	EnvCreated bool         `gorm:"column:env_created" json:"env_created"`
	ExitCode   int          `gorm:"column:exit_code" json:"exit_code"`
	Error      string       `gorm:"column:error" json:"error,omitempty"`
	StartedAt  time.Time    `gorm:"column:started_at" json:"started_at"`
	FinishedAt time.Time    `gorm:"column:finished_at" json:"finished_at"`
}

func (Launch) TableName() string { return "launches" }

func (l Launch) Duration() time.Duration {
	if l.FinishedAt.IsZero() || l.StartedAt.IsZero() {
		return 0
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

// Succeeded means the sequence completed and the entry point exited zero.
func (l Launch) Succeeded() bool {
	return l.Step == StepDone && l.ExitCode == 0
}
