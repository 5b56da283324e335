package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/polygon/midimaxe/sdk/contracts"
)

// ZapLogger is a contracts.Logger backed by go.uber.org/zap, rebuilt
// on every SetDestination call since zap's core (not just its level)
// must change when switching between console and file output.
type ZapLogger struct {
	mu     sync.RWMutex
	level  zap.AtomicLevel
	dest   contracts.LogDestination
	file   *os.File
	logger *zap.Logger
}

// NewZapLogger creates a logger writing JSON-encoded entries to the
// console.
func NewZapLogger() contracts.Logger {
	l := &ZapLogger{
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
		dest:  contracts.ConsoleLog,
	}
	l.rebuild(os.Stdout)
	return l
}

// NewZapFileLogger creates a logger writing JSON-encoded entries to file.
func NewZapFileLogger(file *os.File) contracts.Logger {
	l := &ZapLogger{
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
		dest:  contracts.FileLog,
		file:  file,
	}
	l.rebuild(file)
	return l
}

func (z *ZapLogger) rebuild(w *os.File) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), z.level)
	z.logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	z.logger.Info(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	z.logger.Error(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	z.logger.Debug(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	z.logger.Warn(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.mu.RLock()
	logger := z.logger
	z.mu.RUnlock()
	logger.Fatal(msg, toZapFields(fields)...) // zap.Fatal calls os.Exit(1)
}

// Field returns a fresh, empty field builder.
func (z *ZapLogger) Field() contracts.Field {
	return zapField{}
}

func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.file != nil {
		_ = z.file.Close()
		z.file = nil
	}

	switch dest {
	case contracts.ConsoleLog:
		z.dest = dest
		z.rebuild(os.Stdout)
	case contracts.FileLog:
		if len(filePath) == 0 {
			fmt.Fprintln(os.Stderr, "ERROR: file path must be provided for FileLog")
			return
		}
		file, err := os.OpenFile(filePath[0], os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: failed to open log file: %v\n", err)
			return
		}
		z.file = file
		z.dest = dest
		z.rebuild(file)
	default:
		fmt.Fprintln(os.Stderr, "ERROR: unknown logging destination")
	}
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapField implements contracts.Field. Each call produces a fresh
// value carrying exactly one zap.Field, matching how callers use it:
// logger.Field().String("key", val) rather than a chained builder.
type zapField struct {
	f  zap.Field
	ok bool
}

func (zapField) Bool(key string, val bool) contracts.Field {
	return zapField{f: zap.Bool(key, val), ok: true}
}

func (zapField) Int(key string, val int) contracts.Field {
	return zapField{f: zap.Int(key, val), ok: true}
}

func (zapField) Float64(key string, val float64) contracts.Field {
	return zapField{f: zap.Float64(key, val), ok: true}
}

func (zapField) String(key string, val string) contracts.Field {
	return zapField{f: zap.String(key, val), ok: true}
}

func (zapField) Time(key string, val time.Time) contracts.Field {
	return zapField{f: zap.Time(key, val), ok: true}
}

func (zapField) Int64(key string, val int64) contracts.Field {
	return zapField{f: zap.Int64(key, val), ok: true}
}

func (zapField) Error(key string, val error) contracts.Field {
	return zapField{f: zap.NamedError(key, val), ok: true}
}

func (zapField) Uint64(key string, val uint64) contracts.Field {
	return zapField{f: zap.Uint64(key, val), ok: true}
}

func (zapField) Uint8(key string, val uint8) contracts.Field {
	return zapField{f: zap.Uint8(key, val), ok: true}
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, cf := range fields {
		if zf, ok := cf.(zapField); ok && zf.ok {
			out = append(out, zf.f)
		}
	}
	return out
}
