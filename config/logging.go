package config

import (
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the application logger. It is a no-op until InitLogging runs.
var Logger = zap.NewNop()

// InitLogging builds Logger to write to stdout and cfg.LogFile. The returned
// file must be closed by the caller; it is nil when the file could not be opened.
func InitLogging(cfg *Config) (*os.File, error) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encoder := zapcore.NewConsoleEncoder(encCfg)
	level := zapcore.DebugLevel
	if cfg.IsProduction() {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
		level = zapcore.InfoLevel
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}

	var logFile *os.File
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), os.ModePerm); err != nil {
			log.Printf("Warning: Failed to create logs directory: %v", err)
		} else if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			log.Printf("Warning: Failed to open log file: %v", err)
		} else {
			logFile = f
			sinks = append(sinks, zapcore.AddSync(f))
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	Logger = zap.New(core, zap.AddCaller())
	zap.RedirectStdLog(Logger)
	return logFile, nil
}
