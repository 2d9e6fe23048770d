package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Messages returned to the user when a flow graph is rejected.
const (
	MsgLeadSourceRequired      = "At least one Lead Source node is required."
	MsgColdEmailRequired       = "At least one Cold Email node is required."
	MsgLeadSourceNotSelected   = "All Lead Source nodes must have a selected lead source."
	MsgLeadSourceNoContacts    = "All Lead Source nodes must have at least one contact with an email address."
	MsgLeadSourceInvalidEmail  = "All contacts in Lead Source nodes must have a valid email address."
	MsgColdEmailNotSelected    = "All Cold Email nodes must have a selected email template."
	MsgColdEmailInvalidContent = "All Cold Email nodes must have a valid email template with a subject and body."
	MsgDuplicateNodeID         = "All nodes must have a unique id."
	MsgDanglingEdge            = "All edges must connect existing nodes."
	MsgWaitDelayTooLong        = "All Wait nodes must wait at most 3650 days."
)

// ValidationError rejects a flow graph. The message is safe to show to the user.
type ValidationError struct {
	Message string
	NodeID  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(message, nodeID string) *ValidationError {
	return &ValidationError{Message: message, NodeID: nodeID}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}

// AnomalyKind classifies a (recipient, email node) pair that was not scheduled
// as planned.
type AnomalyKind string

const (
	// AnomalyBranch marks a node with several outgoing edges; the first one was followed.
	AnomalyBranch AnomalyKind = "branch"
	// AnomalyCycle marks a walk that revisited a node before reaching the email node.
	AnomalyCycle AnomalyKind = "cycle"
	// AnomalyDelay marks a path whose summed waits exceed the longest allowed delay.
	AnomalyDelay AnomalyKind = "delay"
	// AnomalyEnqueue marks a job the queue refused.
	AnomalyEnqueue AnomalyKind = "enqueue"
	// AnomalyPersist marks a job that was enqueued, then canceled because its row could not be stored.
	AnomalyPersist AnomalyKind = "persist"
	// AnomalyCompensation marks a job whose row could not be stored and whose cancel failed too.
	AnomalyCompensation AnomalyKind = "compensation"
)

// SchedulingAnomaly records a pair skipped during planning or scheduling.
type SchedulingAnomaly struct {
	Kind         AnomalyKind `json:"kind"`
	SourceNodeID string      `json:"source_node_id,omitempty"`
	EmailNodeID  string      `json:"email_node_id,omitempty"`
	NodeID       string      `json:"node_id,omitempty"`
	Recipient    string      `json:"recipient,omitempty"`
	Err          error       `json:"-"`
}

func (a *SchedulingAnomaly) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "scheduling anomaly %s", a.Kind)

	if a.SourceNodeID != "" || a.EmailNodeID != "" {
		fmt.Fprintf(&b, " (%s -> %s)", a.SourceNodeID, a.EmailNodeID)
	}

	if a.NodeID != "" {
		fmt.Fprintf(&b, " at node %s", a.NodeID)
	}

	if a.Recipient != "" {
		fmt.Fprintf(&b, " for %s", a.Recipient)
	}

	if a.Err != nil {
		fmt.Fprintf(&b, ": %v", a.Err)
	}

	return b.String()
}

func (a *SchedulingAnomaly) Unwrap() error {
	return a.Err
}

// CancellationError lists the jobs of a flow that could not be canceled.
type CancellationError struct {
	FlowID   string
	Failures []error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("failed to cancel %d scheduled email(s) of flow %s: %v",
		len(e.Failures), e.FlowID, errors.Join(e.Failures...))
}

func (e *CancellationError) Unwrap() []error {
	return e.Failures
}

func IsCancellationError(err error) bool {
	var cancelErr *CancellationError

	return errors.As(err, &cancelErr)
}

// ErrJobNotFound is reported per job by strict cancellation when the queue no
// longer holds it.
var ErrJobNotFound = errors.New("job not found in queue")

// CompensationError is raised when a job was enqueued, its tracking row could
// not be stored, and canceling the job failed as well. The job may still fire.
type CompensationError struct {
	JobID      string
	PersistErr error
	CancelErr  error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("job %s is untracked: persist failed (%v), cancel failed (%v)", e.JobID, e.PersistErr, e.CancelErr)
}

func (e *CompensationError) Unwrap() []error {
	return []error{e.PersistErr, e.CancelErr}
}

// ConsistencyDrift is a tracking row whose job is missing from the queue
// before its send time.
type ConsistencyDrift struct {
	FlowID string    `json:"flow_id"`
	RowID  string    `json:"row_id"`
	JobID  string    `json:"job_id"`
	SendAt time.Time `json:"send_at"`
}

func (d *ConsistencyDrift) Error() string {
	return fmt.Sprintf("flow %s: job %s due at %s is missing from the queue", d.FlowID, d.JobID, d.SendAt.Format(time.RFC3339))
}
