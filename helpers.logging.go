package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LoggerContextKey ContextKey = "request.logger"

const megabyte = 1 << 20

// RotatingFileWriter is a size-based rotating and concurrent safe logs writer.
// It implements zapcore.WriteSyncer. A new file is opened once the current
// one would grow beyond the configured max size.
type RotatingFileWriter struct {
	mu     sync.Mutex
	clock  Clocker
	file   *os.File
	folder string
	max    int64
	size   int64
	isProd bool
}

func NewRotatingFileWriter(config *Config, clock Clocker) *RotatingFileWriter {
	return &RotatingFileWriter{
		clock:  clock,
		folder: config.LogFolder,
		max:    int64(config.LogMaxSize) * megabyte,
		isProd: config.IsProduction,
	}
}

// Close closes the current log file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Write implements io.Writer and rotates the file when needed.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pLen := int64(len(p))
	if pLen > w.max {
		return 0, fmt.Errorf("logging: entry size %d exceeds max file size %d", pLen, w.max)
	}
	if w.file == nil || w.size+pLen > w.max {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(w.folder, 0o700); err != nil {
		return err
	}
	path := CreateLogFilePath(w.folder, w.isProd, w.clock.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	w.file = file
	w.size = info.Size()
	return nil
}

// stdoutSyncer avoids the usual `Handle is invalid` error
// when calling Sync() on a logger writing to os.Stdout.
type stdoutSyncer struct {
	out *os.File
}

func (s *stdoutSyncer) Sync() error {
	return nil
}

func (s *stdoutSyncer) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// SetupLogging initializes the logging module. In production all logs are
// saved to the rotating files. In development the same logs are printed to
// standard output as well. Stacktraces are only attached to fatal entries.
// All logs come with commit, tag and build time values.
func SetupLogging(config *Config, w zapcore.WriteSyncer) (*zap.Logger, func() error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if config.IsProduction {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "lvl"
	encoderConfig.NameKey = "name"
	encoderConfig.MessageKey = "msg"
	encoderConfig.CallerKey = "caller"
	encoderConfig.StacktraceKey = "skt"

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), w, config.LogLevel),
	}
	if !config.IsProduction {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(&stdoutSyncer{os.Stdout}),
			config.LogLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel))
	logger = logger.With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}

	return logger, flusher
}

// GetLoggerFromContext retrieves the request scoped logger from the context.
// It falls back to the initial logger of the App.
func (api *APIHandler) GetLoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		return logger
	}
	return api.logger
}

// CreateLogFilePath returns the path of a new log file.
func CreateLogFilePath(folder string, isProd bool, t time.Time) string {
	envKey := "dev"
	if isProd {
		envKey = "prod"
	}
	suffix := fmt.Sprintf("%04d%02d%02d.%02d%02d%02d.%09d.%s.log",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), envKey)
	return filepath.Join(folder, suffix)
}
