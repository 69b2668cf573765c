package form

import (
	"go.uber.org/zap"

	"github.com/menta2k/detect-cropper/internal/logger"
)

// LogNotifier reports dialogs to the logger, for surfaces without windows
type LogNotifier struct{}

func (LogNotifier) Info(title, message string) {
	logger.Log().Info(message, zap.String("title", title))
}

func (LogNotifier) Warning(title, message string) {
	logger.Log().Warn(message, zap.String("title", title))
}

func (LogNotifier) Error(title, message string) {
	logger.Log().Error(message, zap.String("title", title))
}
