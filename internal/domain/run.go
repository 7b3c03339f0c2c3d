package domain

import "time"

type RunState string

const (
	RunIdle                       RunState = "idle"
	RunRunning                    RunState = "running"
	RunCompleted                  RunState = "completed"
	RunCompletedWithPartialErrors RunState = "completed_with_partial_errors"
	RunAborted                    RunState = "aborted"
)

const (
	JobEpisodeScan   = "episode_scan"
	JobStalenessScan = "staleness_scan"
	JobReleaseMatch  = "release_match"
)

// RunReport is the terminal summary of one job execution.
type RunReport struct {
	RunID            string    `json:"runId"`
	Job              string    `json:"job"`
	State            RunState  `json:"state"`
	Subjects         int       `json:"subjects"`
	Ineligible       int       `json:"ineligible"`
	SkippedSubjects  int       `json:"skippedSubjects"`
	Dispatched       int       `json:"dispatched"`
	MalformedRecords int       `json:"malformedRecords"`
	UserErrors       int       `json:"userErrors"`
	Sent             int       `json:"sent"`
	Failed           int       `json:"failed"`
	Note             string    `json:"note,omitempty"`
	Error            string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
}

// AddDispatch folds one dispatch result into the report.
func (r *RunReport) AddDispatch(res DispatchResult) {
	r.Dispatched++
	r.Sent += res.Sent
	r.Failed += res.Failed
}

// Partial reports whether any subject, user or token step failed.
// Malformed records are counted but do not degrade the run.
func (r *RunReport) Partial() bool {
	return r.SkippedSubjects > 0 || r.UserErrors > 0 || r.Failed > 0
}
