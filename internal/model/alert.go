package model

import "time"

// Level is the severity of an Alert.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Alert is a user-visible notice produced by a tick or a lifecycle event.
type Alert struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAlert stamps an alert with at in UTC.
func NewAlert(level Level, message string, at time.Time) Alert {
	return Alert{Level: level, Message: message, Timestamp: at.UTC()}
}
