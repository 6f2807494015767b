package command

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/chunkstore/internal/logger"
)

// Next continues the middleware chain.
type Next func(ctx context.Context, cmd Command) (any, error)

// Middleware wraps command execution. Middlewares run in ascending Order;
// equal orders break ties alphabetically by Name.
type Middleware interface {
	Name() string
	Order() int
	Execute(ctx context.Context, cmd Command, next Next) (any, error)
}

// ValidationError reports a command that failed input validation. It is
// returned before the handler runs.
type ValidationError struct {
	Command string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s command: %v", e.Command, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationMiddleware checks command struct tags and short-circuits the
// chain on failure.
type ValidationMiddleware struct {
	validate *validator.Validate
}

func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{validate: validator.New()}
}

func (*ValidationMiddleware) Name() string { return "validation" }
func (*ValidationMiddleware) Order() int   { return 100 }

func (m *ValidationMiddleware) Execute(ctx context.Context, cmd Command, next Next) (any, error) {
	if err := m.validate.Struct(cmd); err != nil {
		return nil, &ValidationError{Command: cmd.Name(), Err: err}
	}
	return next(ctx, cmd)
}

// LoggingMiddleware records command start and outcome with the
// correlation ID.
type LoggingMiddleware struct{}

func NewLoggingMiddleware() *LoggingMiddleware { return &LoggingMiddleware{} }

func (*LoggingMiddleware) Name() string { return "logging" }
func (*LoggingMiddleware) Order() int   { return 200 }

func (*LoggingMiddleware) Execute(ctx context.Context, cmd Command, next Next) (any, error) {
	logger.InfoCtx(ctx, "executing command", logger.KeyCommand, cmd.Name())

	start := time.Now()
	result, err := next(ctx, cmd)
	if err != nil {
		logger.ErrorCtx(ctx, "command failed",
			logger.KeyCommand, cmd.Name(),
			logger.KeyDuration, logger.Duration(start),
			logger.KeyError, err)
		return nil, err
	}

	logger.InfoCtx(ctx, "command completed",
		logger.KeyCommand, cmd.Name(),
		logger.KeyDuration, logger.Duration(start))
	return result, nil
}

// PerformanceMiddleware warns when a command exceeds its duration
// threshold.
type PerformanceMiddleware struct {
	threshold time.Duration
}

// NewPerformanceMiddleware creates the middleware; a non-positive
// threshold selects the one-second default.
func NewPerformanceMiddleware(threshold time.Duration) *PerformanceMiddleware {
	if threshold <= 0 {
		threshold = time.Second
	}
	return &PerformanceMiddleware{threshold: threshold}
}

func (*PerformanceMiddleware) Name() string { return "performance" }
func (*PerformanceMiddleware) Order() int   { return 300 }

func (m *PerformanceMiddleware) Execute(ctx context.Context, cmd Command, next Next) (any, error) {
	start := time.Now()
	result, err := next(ctx, cmd)
	elapsed := time.Since(start)

	if elapsed > m.threshold {
		logger.WarnCtx(ctx, "slow command",
			logger.KeyCommand, cmd.Name(),
			logger.KeyDuration, logger.Duration(start),
			"threshold", m.threshold.String())
	} else {
		logger.DebugCtx(ctx, "command timing",
			logger.KeyCommand, cmd.Name(),
			logger.KeyDuration, logger.Duration(start))
	}
	return result, err
}
