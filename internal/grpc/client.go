package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/jobs"
)

type Client struct {
	conn *grpc.ClientConn
}

// JobState is what the server reports about a job id.
type JobState struct {
	ID         string
	Status     string
	StatusCode int
	Complete   bool
	Result     *interfaces.Result
}

func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Enqueue(ctx context.Context, jobType, input string) (string, error) {
	resp, err := c.invoke(ctx, "Enqueue", map[string]any{"type": jobType, "input": input})
	if err != nil {
		return "", err
	}
	return stringField(resp, "job_id"), nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*JobState, error) {
	resp, err := c.invoke(ctx, "Status", map[string]any{"job_id": jobID})
	if err != nil {
		return nil, err
	}

	fields := resp.GetFields()
	state := &JobState{
		ID:         stringField(resp, "job_id"),
		Status:     stringField(resp, "status"),
		StatusCode: int(fields["status_code"].GetNumberValue()),
		Complete:   fields["complete"].GetBoolValue(),
	}
	if _, ok := fields["output"]; ok {
		state.Result = &interfaces.Result{
			Output: stringField(resp, "output"),
			Err:    stringField(resp, "error"),
		}
	}
	return state, nil
}

// RunSync blocks until the job finishes or ctx is done.
func (c *Client) RunSync(ctx context.Context, jobType, input string) (string, interfaces.Result, error) {
	resp, err := c.invoke(ctx, "RunSync", map[string]any{"type": jobType, "input": input})
	if err != nil {
		return "", interfaces.Result{}, err
	}
	return stringField(resp, "job_id"), interfaces.Result{
		Output: stringField(resp, "output"),
		Err:    stringField(resp, "error"),
	}, nil
}

func (c *Client) Cancel(ctx context.Context, jobID string) error {
	_, err := c.invoke(ctx, "Cancel", map[string]any{"job_id": jobID})
	return err
}

func (c *Client) ListTypes(ctx context.Context) ([]string, error) {
	resp, err := c.invoke(ctx, "ListTypes", map[string]any{})
	if err != nil {
		return nil, err
	}
	values := resp.GetFields()["types"].GetListValue().GetValues()
	types := make([]string, 0, len(values))
	for _, v := range values {
		types = append(types, v.GetStringValue())
	}
	return types, nil
}

func (c *Client) Stats(ctx context.Context) (jobs.Stats, bool, error) {
	resp, err := c.invoke(ctx, "Stats", map[string]any{})
	if err != nil {
		return jobs.Stats{}, false, err
	}
	fields := resp.GetFields()
	number := func(key string) int { return int(fields[key].GetNumberValue()) }
	return jobs.Stats{
		Pending:        number("pending"),
		Completed:      number("completed"),
		Workers:        number("workers"),
		BusyWorkers:    number("busy_workers"),
		HistoryEntries: number("history_entries"),
	}, fields["active"].GetBoolValue(), nil
}

func (c *Client) CreateWorker(ctx context.Context) (string, error) {
	resp, err := c.invoke(ctx, "CreateWorker", map[string]any{})
	if err != nil {
		return "", err
	}
	return stringField(resp, "worker_id"), nil
}
