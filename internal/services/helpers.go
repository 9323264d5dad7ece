package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/poofware/todo-service/shared/go-utils"
)

// generateVerificationCode draws each digit independently from 0-9.
func generateVerificationCode(length int) (string, error) {
	return utils.RandomNumericString(length)
}

// cleanupRetryDelay is the pause before the single retry of a cleanup job.
var cleanupRetryDelay = 3 * time.Second

// isTransientDBError reports EOF, pgconn safe-to-retry and closed-connection
// failures.
func isTransientDBError(err error) bool {
	return errors.Is(err, io.EOF) || pgconn.SafeToRetry(err) ||
		strings.Contains(err.Error(), "connection was closed")
}

// runWithRetry executes op(ctx) and, if it returns a transient network
// error, waits a moment then retries once.
func runWithRetry(ctx context.Context, job string, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		if !isTransientDBError(err) {
			return err
		}
		utils.Logger.WithError(err).Warnf("%s hit transient DB error; retrying once", job)
		select {
		case <-time.After(cleanupRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		return op(ctx)
	}
	return nil
}
