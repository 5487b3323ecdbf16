package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
)

// Server exposes a job manager over gRPC.
type Server struct {
	manager *jobs.Manager
}

func NewServer(manager *jobs.Manager) *Server {
	return &Server{manager: manager}
}

func (s *Server) Enqueue(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	jobType := stringField(req, "type")
	if jobType == "" {
		return nil, status.Error(codes.InvalidArgument, "job type is required")
	}

	id := s.manager.Enqueue(jobType, stringField(req, "input"))
	logger.Logger.Debug().Str("job_id", id).Msg("Job enqueued via gRPC")
	return newStruct(map[string]any{
		"job_id": id,
		"status": s.manager.Status(id).String(),
	})
}

func (s *Server) Status(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "job_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "job id is required")
	}

	st := s.manager.Status(id)
	fields := map[string]any{
		"job_id":      id,
		"status":      st.String(),
		"status_code": int(st),
		"complete":    s.manager.IsComplete(id),
	}
	if result, ok := s.manager.Result(id); ok {
		fields["output"] = result.Output
		fields["error"] = result.Err
	}
	return newStruct(fields)
}

func (s *Server) RunSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	jobType := stringField(req, "type")
	if jobType == "" {
		return nil, status.Error(codes.InvalidArgument, "job type is required")
	}

	id := s.manager.Enqueue(jobType, stringField(req, "input"))
	result, err := s.manager.Wait(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, status.Error(codes.DeadlineExceeded, err.Error())
		}
		return nil, status.Error(codes.Canceled, err.Error())
	}
	return newStruct(map[string]any{
		"job_id": id,
		"output": result.Output,
		"error":  result.Err,
	})
}

func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "job_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "job id is required")
	}
	s.manager.Cancel(id)
	return newStruct(map[string]any{})
}

func (s *Server) ListTypes(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	types := s.manager.ListJobTypes()
	values := make([]any, len(types))
	for i, t := range types {
		values[i] = t
	}
	return newStruct(map[string]any{"types": values})
}

func (s *Server) Stats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	stats := s.manager.Stats()
	return newStruct(map[string]any{
		"pending":         stats.Pending,
		"completed":       stats.Completed,
		"workers":         stats.Workers,
		"busy_workers":    stats.BusyWorkers,
		"history_entries": stats.HistoryEntries,
		"active":          s.manager.HasActiveWork(),
	})
}

func (s *Server) CreateWorker(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, err := s.manager.CreateWorker()
	if err != nil {
		if errors.Is(err, jobs.ErrShutdown) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return newStruct(map[string]any{"worker_id": id})
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
