package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

type Client struct {
	conn *nats.Conn
}

func NewClient(url string) (*Client, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Submit sends a submission and waits for the reply carrying the job id.
func (c *Client) Submit(ctx context.Context, jobType, input string) (string, error) {
	data, err := json.Marshal(&JobSubmissionMessage{Type: jobType, Input: input})
	if err != nil {
		return "", fmt.Errorf("failed to marshal job submission message: %w", err)
	}

	resp, err := c.conn.RequestWithContext(ctx, JobSubmitSubject, data)
	if err != nil {
		return "", fmt.Errorf("failed to submit job: %w", err)
	}

	var reply JobSubmissionReply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return "", fmt.Errorf("failed to decode submission reply: %w", err)
	}
	if reply.Error != "" {
		return "", errors.New(reply.Error)
	}
	return reply.JobID, nil
}

// SubscribeStatus calls fn for every status message until the returned
// subscription is drained.
func (c *Client) SubscribeStatus(fn func(*JobStatusMessage)) (*nats.Subscription, error) {
	sub, err := c.conn.Subscribe(JobStatusSubject, func(msg *nats.Msg) {
		var status JobStatusMessage
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			return
		}
		fn(&status)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to job status: %w", err)
	}
	return sub, nil
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
