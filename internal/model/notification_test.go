package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestNotificationDestination(t *testing.T) {
	id := uuid.MustParse("5f0d0c5e-2d7a-4a1b-9d1e-0b7f6f3c1a22")
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"reaction on question", Notification{Type: NotificationReaction, SourceTable: "questions", SourceID: id}, "/forum/" + id.String()},
		{"comment on question", Notification{Type: NotificationComment, SourceTable: "questions", SourceID: id}, "/forum/" + id.String()},
		{"reaction elsewhere", Notification{Type: NotificationReaction, SourceTable: "comments", SourceID: id}, ""},
		{"reminder", Notification{Type: NotificationMedicalReminder, SourceTable: "medical_reminders", SourceID: id}, "/reminders"},
		{"task", Notification{Type: NotificationTask, SourceTable: "tasks", SourceID: id}, "/tasks"},
		{"unknown", Notification{Type: "other"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.Destination(); got != tt.want {
				t.Fatalf("Destination() = %q, want %q", got, tt.want)
			}
		})
	}
}
