package engine

import (
	"time"
)

// PlanEntry is one email to send: a contact reached from a lead source node,
// the cold email node it reaches and when.
type PlanEntry struct {
	SourceNodeID string        `json:"source_node_id"`
	EmailNodeID  string        `json:"email_node_id"`
	Recipient    string        `json:"recipient"`
	TemplateID   string        `json:"template_id"`
	Subject      string        `json:"subject"`
	Body         string        `json:"body"`
	Delay        time.Duration `json:"delay"`
	SendAt       time.Time     `json:"send_at"`
}

// Plan is the ordered set of emails a flow graph resolves to at one instant.
// Entries are ordered by lead source node, then contact, then cold email node.
type Plan struct {
	ResolvedAt time.Time            `json:"resolved_at"`
	Entries    []PlanEntry          `json:"entries"`
	Anomalies  []*SchedulingAnomaly `json:"anomalies,omitempty"`
}

// Len returns the number of planned emails.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}

	return len(p.Entries)
}

// ScheduleReport tells the caller how much of a plan actually reached the queue.
type ScheduleReport struct {
	FlowID    string               `json:"flow_id"`
	Planned   int                  `json:"planned"`
	Scheduled int                  `json:"scheduled"`
	Skipped   int                  `json:"skipped"`
	Anomalies []*SchedulingAnomaly `json:"anomalies,omitempty"`
}

// CancelReport summarizes a cancel-all pass.
type CancelReport struct {
	FlowID   string `json:"flow_id"`
	Canceled int    `json:"canceled"`
	// Stale counts rows whose job had already fired or been canceled.
	Stale int `json:"stale"`
}
