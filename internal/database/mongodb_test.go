package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	require.NoError(t, Classify("find", nil))

	plain := errors.New("duplicate key")
	require.Equal(t, plain, Classify("insert", plain))

	err := Classify("find", fmt.Errorf("wrapped: %w", mongo.ErrClientDisconnected))
	require.True(t, IsConnectionError(err))
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "find", ce.Op)
	require.ErrorIs(t, err, mongo.ErrClientDisconnected)

	timeout := Classify("find", context.DeadlineExceeded)
	require.True(t, IsConnectionError(timeout))

	// already classified errors are not wrapped twice
	again := Classify("update", err)
	require.Same(t, err, again)
}

func TestConnectWithRetry_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	attempts := 0
	_, err := ConnectWithRetry(context.Background(), "mongodb://127.0.0.1:1/?connect=direct", 200*time.Millisecond, 1, func(int, error) { attempts++ })
	require.Error(t, err)
	require.True(t, IsConnectionError(err))
	require.Equal(t, 1, attempts)
}
