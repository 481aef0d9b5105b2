package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// ConnectionError reports that the store could not be reached.
// It is never retried here; the host decides what to do with it.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mongo %s: store unreachable: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or anything it wraps) is a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// Classify wraps driver errors that mean "the store is unreachable" in a
// *ConnectionError. Other errors are returned unchanged.
func Classify(op string, err error) error {
	if err == nil || IsConnectionError(err) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, topology.ErrServerSelectionTimeout),
		mongo.IsNetworkError(err),
		mongo.IsTimeout(err):
		return &ConnectionError{Op: op, Err: err}
	}
	return err
}

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
// Both connect and ping failures come back as *ConnectionError.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	return client, nil
}

// ConnectWithRetry calls ConnectMongo up to attempts times, doubling the wait
// between attempts. onFailure is called after each failed attempt.
func ConnectWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, onFailure func(attempt int, err error)) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &ConnectionError{Op: "connect", Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
