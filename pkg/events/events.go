// Package events defines the messages exchanged between mailflow processes.
package events

import (
	"time"

	"github.com/dukex/mailflow/pkg/models"
)

type EventType string

const Topic = "mailflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	EmailDueEvent          EventType = "email.due"
	FlowStatusChangedEvent EventType = "flow.status_changed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	FlowID    string    `json:"flow_id"`
}

// EmailDue is published when the job queue fires a scheduled email.
type EmailDue struct {
	BaseEvent

	JobID string          `json:"job_id"`
	Job   models.EmailJob `json:"job"`
}

func (e EmailDue) GetType() EventType {
	return EmailDueEvent
}

// FlowStatusChanged is published whenever the projected status of a flow moves.
type FlowStatusChanged struct {
	BaseEvent

	From models.FlowStatus `json:"from"`
	To   models.FlowStatus `json:"to"`
}

func (e FlowStatusChanged) GetType() EventType {
	return FlowStatusChangedEvent
}

func NewEmailDue(id, jobID string, job models.EmailJob) EmailDue {
	return EmailDue{
		BaseEvent: BaseEvent{
			ID:        id,
			Type:      EmailDueEvent,
			Timestamp: time.Now().UTC(),
			FlowID:    job.FlowID,
		},
		JobID: jobID,
		Job:   job,
	}
}

func NewFlowStatusChanged(id, flowID string, from, to models.FlowStatus) FlowStatusChanged {
	return FlowStatusChanged{
		BaseEvent: BaseEvent{
			ID:        id,
			Type:      FlowStatusChangedEvent,
			Timestamp: time.Now().UTC(),
			FlowID:    flowID,
		},
		From: from,
		To:   to,
	}
}
