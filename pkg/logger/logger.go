package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	// Override with environment if not provided
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	// Set formatter based on environment
	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)

	Logger = log

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// WithComponent creates a logger with component context
func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

// WithRunID creates a logger with a gameday run identifier
func WithRunID(runID string) *logrus.Entry {
	return GetLogger().WithField("run_id", runID)
}

// WithWeekContext creates a logger with season/week context
func WithWeekContext(season, week int) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"season": season,
		"week":   week,
	})
}

// WithRunContext creates a logger with full gameday run context
func WithRunContext(runID, ruleset string, season, week int) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"run_id":  runID,
		"ruleset": ruleset,
		"season":  season,
		"week":    week,
	})
}

// WithPlayerContext creates a logger with player context
func WithPlayerContext(playerID, position string) *logrus.Entry {
	fields := logrus.Fields{}
	if playerID != "" {
		fields["player_id"] = playerID
	}
	if position != "" {
		fields["position"] = position
	}
	return GetLogger().WithFields(fields)
}
