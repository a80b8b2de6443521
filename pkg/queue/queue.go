package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotRunning is returned by Enqueue before Start or after Stop.
var ErrNotRunning = errors.New("queue not running")

// Publisher enqueues messages and returns their ID.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers    int           // number of workers
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals the payload of msg into T.
func Decode[T any](msg Message) (*T, error) {
	var out T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("message %s: empty payload", msg.ID)
	}
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return nil, fmt.Errorf("message %s: decode payload: %w", msg.ID, err)
	}
	return &out, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
	outcomeCancelled
)

func classify(err error, attempts, retryLimit int) outcome {
	switch {
	case err == nil:
		return outcomeDone
	case errors.Is(err, context.Canceled):
		return outcomeCancelled
	case attempts < retryLimit:
		return outcomeRetry
	default:
		return outcomeDead
	}
}
