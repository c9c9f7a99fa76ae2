package models

import "time"

// LogEntry is one operational log line recorded by the backend
type LogEntry struct {
	ID          string    `json:"_id"`
	Log         string    `json:"log,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Text returns the most descriptive text the entry carries
func (l LogEntry) Text() string {
	switch {
	case l.Log != "":
		return l.Log
	case l.Description != "":
		return l.Description
	default:
		return l.Title
	}
}
