package checker

import (
	"context"
	"fmt"

	"github.com/saaga0h/lumen-platform/e2e/internal/scenario"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

// CheckStatusExpectation validates the status hash a bridge writes to Redis
func CheckStatusExpectation(ctx context.Context, client redis.Client, device string, exp scenario.Expectation) (bool, string, interface{}) {
	key := redis.StatusKey(device)

	fields, err := client.HGetAll(ctx, key)
	if err != nil {
		return false, fmt.Sprintf("Redis error: %v", err), nil
	}
	if len(fields) == 0 {
		return false, fmt.Sprintf("no status at %q, is telemetry enabled?", key), nil
	}

	matches, reason := MatchFields(fields, exp.Status)
	if !matches {
		return false, reason, fields
	}

	return true, "", fields
}
