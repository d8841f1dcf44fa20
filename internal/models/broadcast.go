package models

import "time"

// BroadcastState is the lifecycle of a mass send.
type BroadcastState string

const (
	BroadcastQueued    BroadcastState = "QUEUED"
	BroadcastRunning   BroadcastState = "RUNNING"
	BroadcastDone      BroadcastState = "DONE"
	BroadcastCancelled BroadcastState = "CANCELLED"
)

// BroadcastRecipient is one guardian to message.
type BroadcastRecipient struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Phone     string `json:"phone"`
	Summary   string `json:"summary"`
}

// BroadcastRequest starts a mass send to the guardians of the selected students.
// Template placeholders: {nama}, {kelas}, {ringkasan}. With PeriodID set, {ringkasan}
// holds the student's semester standing.
type BroadcastRequest struct {
	Template   string   `json:"template" validate:"required,max=2000"`
	ClassID    string   `json:"class_id" validate:"omitempty,uuid"`
	HalaqahID  string   `json:"halaqah_id" validate:"omitempty,uuid"`
	StudentIDs []string `json:"student_ids" validate:"omitempty,max=500,dive,uuid"`
	PeriodID   string   `json:"period_id" validate:"omitempty,uuid"`
}

// BroadcastDelivery is the outcome for one recipient.
type BroadcastDelivery struct {
	StudentID string     `json:"student_id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Link      string     `json:"link,omitempty"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// BroadcastStatus is the progress shown to the operator. Sent+Failed only grows.
type BroadcastStatus struct {
	ID         string              `json:"id"`
	State      BroadcastState      `json:"state"`
	Total      int                 `json:"total"`
	Sent       int                 `json:"sent"`
	Failed     int                 `json:"failed"`
	Deliveries []BroadcastDelivery `json:"deliveries"`
	CreatedBy  string              `json:"created_by"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// Processed is the number of recipients already handled.
func (s BroadcastStatus) Processed() int {
	return s.Sent + s.Failed
}
