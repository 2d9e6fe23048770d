package models

import "time"

// ScheduledEmail ties one (recipient, email node) pair of a flow to a job in
// the delayed job queue.
type ScheduledEmail struct {
	ID        string    `json:"id"`
	FlowID    string    `json:"flow_id"`
	JobID     string    `json:"job_id"`
	NodeID    string    `json:"node_id"`
	Recipient string    `json:"recipient"`
	SendAt    time.Time `json:"send_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPending reports whether the email is still expected to fire after now.
func (s *ScheduledEmail) IsPending(now time.Time) bool {
	return s.SendAt.After(now)
}

// EmailJob is the payload handed to the job queue and back to the delivery handler.
type EmailJob struct {
	FlowID    string `json:"flow_id"`
	NodeID    string `json:"node_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
