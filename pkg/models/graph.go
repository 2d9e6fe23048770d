// Package models defines the domain models for email automation flows.
package models

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// NodeKind identifies what a node in a flow graph does.
// Values follow the wire names used by the flow editor.
type NodeKind string

const (
	NodeKindLeadSource NodeKind = "leadSource" // Resolves to a recipient list
	NodeKindWait       NodeKind = "wait"       // Adds delay to every path through it
	NodeKindColdEmail  NodeKind = "coldEmail"  // Sends a templated email
)

// Position is the editor canvas position of a node. It carries no semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single step of a flow graph.
type Node struct {
	ID       string   `json:"id"                 validate:"required"`
	Type     NodeKind `json:"type"               validate:"required,oneof=leadSource wait coldEmail"`
	Data     NodeData `json:"data"`
	Position Position `json:"position,omitempty"`
}

// NodeData is the kind-specific payload of a node. Only the field matching the
// node kind is meaningful.
type NodeData struct {
	Label           string     `json:"label,omitempty"`
	LeadSourceID    string     `json:"leadSourceId,omitempty"`
	EmailTemplateID string     `json:"emailTemplateId,omitempty"`
	Delay           *WaitDelay `json:"delay,omitempty"`
}

// LeadSourceRef is the trimmed lead source id of a leadSource node.
func (d NodeData) LeadSourceRef() string {
	return strings.TrimSpace(d.LeadSourceID)
}

// TemplateRef is the trimmed template id of a coldEmail node.
func (d NodeData) TemplateRef() string {
	return strings.TrimSpace(d.EmailTemplateID)
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Graph is the ordered node and edge set of a flow.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NodesOfKind returns the nodes of the given kind in graph order.
func (g Graph) NodesOfKind(kind NodeKind) []*Node {
	out := make([]*Node, 0)

	for _, node := range g.Nodes {
		if node != nil && node.Type == kind {
			out = append(out, node)
		}
	}

	return out
}

// NodeByID returns the first node with the given id.
func (g Graph) NodeByID(id string) (*Node, bool) {
	for _, node := range g.Nodes {
		if node != nil && node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// WaitDelay is the delay contributed by a wait node.
type WaitDelay struct {
	Days    DelayUnit `json:"days"`
	Hours   DelayUnit `json:"hours"`
	Minutes DelayUnit `json:"minutes"`
}

// MaxWaitDays bounds a single wait node and the summed delay of any path.
const MaxWaitDays = 3650

// MaxWaitDelay is MaxWaitDays as a duration.
const MaxWaitDelay = MaxWaitDays * 24 * time.Hour

// Duration converts the delay into a time.Duration, capped at MaxWaitDelay.
func (d *WaitDelay) Duration() time.Duration {
	minutes, _ := d.minutes()

	return time.Duration(minutes) * time.Minute
}

// TooLong reports whether the delay is beyond MaxWaitDelay.
func (d *WaitDelay) TooLong() bool {
	_, capped := d.minutes()

	return capped
}

func (d *WaitDelay) minutes() (int64, bool) {
	if d == nil {
		return 0, false
	}

	limit := int64(MaxWaitDelay / time.Minute)
	parts := []struct {
		n   int
		per int64
	}{
		{d.Days.value(), 24 * 60},
		{d.Hours.value(), 60},
		{d.Minutes.value(), 1},
	}

	var total int64

	for _, part := range parts {
		if int64(part.n) > (limit-total)/part.per {
			return limit, true
		}

		total += int64(part.n) * part.per
	}

	return total, false
}

// DelayUnit is a non-negative delay component. The editor sends these as
// strings, API clients as numbers; both are accepted and anything that is not
// a number counts as zero. Values beyond the int32 range are clamped.
type DelayUnit int

func (u DelayUnit) value() int {
	if u < 0 {
		return 0
	}

	return int(u)
}

// UnmarshalJSON accepts numbers and numeric strings.
func (u *DelayUnit) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))

	if raw == "null" || raw == "" {
		*u = 0

		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		*u = 0

		return nil
	}

	switch {
	case f >= math.MaxInt32:
		*u = math.MaxInt32
	case f <= math.MinInt32:
		*u = math.MinInt32
	default:
		*u = DelayUnit(f)
	}

	return nil
}
