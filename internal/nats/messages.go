package nats

import "github.com/mtr002/job-system/internal/interfaces"

const (
	JobSubmitSubject = "jobs.submit"
	JobStatusSubject = "jobs.status"
)

type JobSubmissionMessage struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

type JobSubmissionReply struct {
	JobID  string `json:"job_id,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

type JobStatusMessage struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewJobStatusMessage builds the status message for a transition. result is
// only set for completed jobs.
func NewJobStatusMessage(entry interfaces.HistoryEntry, result *interfaces.Result) *JobStatusMessage {
	msg := &JobStatusMessage{
		JobID:      entry.JobID,
		Status:     entry.Status.String(),
		StatusCode: int(entry.Status),
	}
	if result != nil {
		msg.Result = result.Output
		msg.Error = result.Err
	}
	return msg
}
