package handlers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
)

// Register adds the built-in job types to r.
func Register(r *jobs.Registry) {
	r.Register("echo", Echo)
	r.Register("uppercase", Uppercase)
	r.Register("reverse", Reverse)
	r.Register("slow", Slow)
	r.Register("fail", Fail)
}

func Echo(_ context.Context, input string) (string, error) {
	return fmt.Sprintf("Echo: %s", input), nil
}

func Uppercase(_ context.Context, input string) (string, error) {
	return strings.ToUpper(input), nil
}

func Reverse(_ context.Context, input string) (string, error) {
	runes := []rune(input)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

// Slow sleeps for the duration given as input (e.g. "250ms"), or for a
// random 1-5s when the input is empty.
func Slow(ctx context.Context, input string) (string, error) {
	var sleepDuration time.Duration
	if input != "" {
		d, err := time.ParseDuration(input)
		if err != nil {
			return "", fmt.Errorf("invalid duration %q: %w", input, err)
		}
		sleepDuration = d
	} else {
		n, err := rand.Int(rand.Reader, big.NewInt(5))
		if err != nil {
			n = big.NewInt(2)
		}
		sleepDuration = time.Duration(n.Int64()+1) * time.Second
	}

	logger.Logger.Debug().Dur("duration", sleepDuration).Msg("Slow job sleeping")
	select {
	case <-time.After(sleepDuration):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("Slow job completed after %v", sleepDuration), nil
}

func Fail(_ context.Context, input string) (string, error) {
	if input == "" {
		return "", errors.New("simulated job failure")
	}
	return "", errors.New(input)
}
