package events

import (
	"testing"
	"time"
)

func TestClickRecordedValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   ClickRecorded
		wantErr bool
	}{
		{"valid", ClickRecorded{EventID: "e1", Code: "abc123", OccurredAt: "2025-01-15T12:00:00Z"}, false},
		{"nanoseconds", ClickRecorded{EventID: "e1", Code: "abc123", OccurredAt: "2025-01-15T12:00:00.123456789Z"}, false},
		{"missing id", ClickRecorded{Code: "abc123", OccurredAt: "2025-01-15T12:00:00Z"}, true},
		{"missing code", ClickRecorded{EventID: "e1", OccurredAt: "2025-01-15T12:00:00Z"}, true},
		{"bad time", ClickRecorded{EventID: "e1", Code: "abc123", OccurredAt: "yesterday"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && at.Location() != time.UTC {
				t.Errorf("expected UTC, got %v", at.Location())
			}
		})
	}
}
