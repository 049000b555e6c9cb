package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLogger routes GORM output through slog so SQL lines carry the same
// request and trace ids as the handler logs around them.
type queryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func newQueryLogger(l *slog.Logger) *queryLogger {
	return &queryLogger{log: l.With(slog.String("component", "gorm")), level: logger.Warn, slow: slowQuery}
}

func (q *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	out := *q
	out.level = level
	return &out
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	q.emit(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	q.emit(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	q.emit(ctx, logger.Error, slog.LevelError, msg, args)
}

func (q *queryLogger) emit(ctx context.Context, threshold logger.LogLevel, level slog.Level, msg string, args []any) {
	if q.level >= threshold {
		q.log.Log(ctx, level, fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed statements, statements slower than the threshold and,
// at Info level, everything else. Missing rows are not failures.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	took := time.Since(begin)

	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= logger.Error
	slow := q.slow > 0 && took > q.slow && q.level >= logger.Warn
	if !failed && !slow && q.level < logger.Info {
		return
	}

	stmt, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", stmt),
		slog.Int64("rows", rows),
		slog.Duration("took", took),
	}
	switch {
	case failed:
		q.log.LogAttrs(ctx, slog.LevelError, "query failed", append(attrs, slog.String("error", err.Error()))...)
	case slow:
		q.log.LogAttrs(ctx, slog.LevelWarn, "slow query", attrs...)
	default:
		q.log.LogAttrs(ctx, slog.LevelDebug, "query", attrs...)
	}
}
