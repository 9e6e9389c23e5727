package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newGormTestLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func selectQuery() (string, int64) {
	return "SELECT * FROM count_sessions WHERE short_id = ?", 1
}

func TestGormLogger_Options(t *testing.T) {
	gl, _ := newGormTestLogger(gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithRecordNotFoundLogging(),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.logNotFound)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newGormTestLogger(gormlogger.Info)

	quieter := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Warn, quieter.(*GormLogger).level)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("successful query logs at debug", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), selectQuery, nil)

		entries := recorded.FilterMessage("query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(1), fields["rows"])
		assert.Contains(t, fields["sql"], "count_sessions")
	})

	t.Run("failed query logs at error", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), selectQuery, errors.New("connection reset"))

		entries := recorded.FilterMessage("query failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("record not found is suppressed by default", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), selectQuery, gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("record not found logged when opted in", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Error, WithRecordNotFoundLogging())

		gl.Trace(context.Background(), time.Now(), selectQuery, gormlogger.ErrRecordNotFound)

		assert.Len(t, recorded.FilterMessage("query failed").All(), 1)
	})

	t.Run("slow query logs at warn", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

		gl.Trace(context.Background(), time.Now().Add(-time.Millisecond), selectQuery, nil)

		entries := recorded.FilterMessage("slow query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), selectQuery, errors.New("ignored"))

		assert.Empty(t, recorded.All())
	})

	t.Run("request id is carried from context", func(t *testing.T) {
		gl, recorded := newGormTestLogger(gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")

		gl.Trace(ctx, time.Now(), selectQuery, nil)

		entries := recorded.FilterMessage("query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"bogus", gormlogger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, MapGormLogLevel(tt.level))
		})
	}
}
