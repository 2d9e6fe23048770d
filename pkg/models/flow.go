package models

import "time"

// FlowStatus is the run state of a flow, projected from its outstanding schedules.
type FlowStatus string

const (
	FlowStatusPending   FlowStatus = "PENDING"   // Saved or stopped, nothing scheduled
	FlowStatusRunning   FlowStatus = "RUNNING"   // At least one email is waiting to fire
	FlowStatusCompleted FlowStatus = "COMPLETED" // Every scheduled email has fired
)

// Flow is a saved flow graph plus its run status.
type Flow struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"       validate:"required"`
	Nodes     []*Node    `json:"nodes"`
	Edges     []*Edge    `json:"edges"`
	Status    FlowStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Graph returns the flow's node/edge set.
func (f *Flow) Graph() Graph {
	return Graph{Nodes: f.Nodes, Edges: f.Edges}
}

// Owner identifies the authenticated user acting on flows.
type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
