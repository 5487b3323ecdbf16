package nats

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
)

// Server feeds submissions received over NATS into the job manager and
// publishes status transitions back out.
type Server struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	manager *jobs.Manager
}

func NewServer(url string, manager *jobs.Manager) (*Server, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Server{
		conn:    conn,
		manager: manager,
	}, nil
}

func (s *Server) Subscribe() error {
	sub, err := s.conn.Subscribe(JobSubmitSubject, s.handleSubmission)
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS: %w", err)
	}

	s.sub = sub
	return nil
}

func (s *Server) handleSubmission(msg *nats.Msg) {
	reply := s.submit(msg.Data)
	if reply.Error != "" {
		logger.Logger.Warn().Str("error", reply.Error).Msg("Rejected NATS job submission")
	}

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to marshal submission reply")
		return
	}
	if err := s.conn.Publish(msg.Reply, data); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to send submission reply")
	}
}

func (s *Server) submit(data []byte) *JobSubmissionReply {
	var jobMsg JobSubmissionMessage
	if err := json.Unmarshal(data, &jobMsg); err != nil {
		return &JobSubmissionReply{Error: "invalid submission: " + err.Error()}
	}
	if jobMsg.Type == "" {
		return &JobSubmissionReply{Error: "job type is required"}
	}

	id := s.manager.Enqueue(jobMsg.Type, jobMsg.Input)
	return &JobSubmissionReply{
		JobID:  id,
		Status: s.manager.Status(id).String(),
	}
}

// PublishTransition announces a status change on JobStatusSubject.
func (s *Server) PublishTransition(entry interfaces.HistoryEntry) error {
	if s.conn == nil {
		return errors.New("nats connection is not open")
	}

	var result *interfaces.Result
	if entry.Status == interfaces.StatusCompleted {
		if r, ok := s.manager.Result(entry.JobID); ok {
			result = &r
		}
	}

	data, err := json.Marshal(NewJobStatusMessage(entry, result))
	if err != nil {
		return fmt.Errorf("failed to marshal job status message: %w", err)
	}
	if err := s.conn.Publish(JobStatusSubject, data); err != nil {
		return fmt.Errorf("failed to publish job status: %w", err)
	}
	return nil
}

func (s *Server) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
