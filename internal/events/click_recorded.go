package events

import (
	"errors"
	"strings"
	"time"
)

const (
	ClickRecordedType  = "click.recorded"
	ClickRecordedTopic = "clicks.recorded"
)

// ClickRecorded is published once per committed click row. OccurredAt is
// RFC 3339 in UTC.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	Code       string `json:"code"`
	ClickID    int64  `json:"clickId"`
	OccurredAt string `json:"occurredAt"`
	Referrer   string `json:"referrer,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// Validate checks the fields consumers rely on and returns the parsed
// occurrence time.
func (e ClickRecorded) Validate() (time.Time, error) {
	if strings.TrimSpace(e.EventID) == "" {
		return time.Time{}, errors.New("eventId must not be empty")
	}
	if strings.TrimSpace(e.Code) == "" {
		return time.Time{}, errors.New("code must not be empty")
	}
	at, err := time.Parse(time.RFC3339Nano, e.OccurredAt)
	if err != nil {
		return time.Time{}, err
	}
	return at.UTC(), nil
}
