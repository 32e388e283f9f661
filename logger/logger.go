package logger

import (
	"io"
	"os"
	"path/filepath"

	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger: stdout plus a rotating file under logDir.
// The returned writer is shared with the fiber access log so both streams
// rotate together.
func New(logDir string, debug bool) (zerolog.Logger, io.Writer, error) {
	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(multiWriter).
		Level(level).
		With().
		Timestamp().
		Logger()

	return log, multiWriter, nil
}

// FiberConfig returns the access-log middleware configuration pointed at
// the shared writer.
func FiberConfig(w io.Writer) fiberLogger.Config {
	return fiberLogger.Config{
		Output:     w,
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}
}
