package utils

import (
	"io"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
)

// CloseLogged closes c during shutdown and reports the outcome under name.
func CloseLogged(c io.Closer, name string, log logger.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("component", name), logger.Error(err))
		return
	}
	log.Infof("✅ %s closed cleanly", name)
}
