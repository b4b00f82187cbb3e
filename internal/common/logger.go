package common

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const logTimeFormat = "15:04:05"

// InitLogger builds the process logger from the logging config. Writers
// are additive: "stdout" (or "console") and "file" may both be listed.
// File output goes to logs/lucrum.log next to the working directory;
// failure to set it up degrades to console only.
func InitLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	for _, output := range config.Logging.Output {
		switch output {
		case "stdout", "console":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				TimeFormat: logTimeFormat,
				TextOutput: true,
			})
		case "file":
			if path, err := logFilePath(); err == nil {
				logger = logger.WithFileWriter(models.WriterConfiguration{
					Type:       models.LogWriterTypeFile,
					FileName:   path,
					TimeFormat: logTimeFormat,
					MaxSize:    100 * 1024 * 1024,
					MaxBackups: 3,
					TextOutput: true,
				})
			}
		}
	}

	return logger.WithLevelFromString(config.Logging.Level)
}

func logFilePath() (string, error) {
	dir := "logs"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "lucrum.log"), nil
}
