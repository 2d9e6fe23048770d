package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/models"
)

func TestNewEmailDue(t *testing.T) {
	job := models.EmailJob{FlowID: "flow-1", NodeID: "e1", Recipient: "a@x.com"}

	event := NewEmailDue("evt-1", "job-1", job)

	assert.Equal(t, EmailDueEvent, event.GetType())
	assert.Equal(t, "flow-1", event.FlowID)
	assert.Equal(t, "job-1", event.JobID)
	assert.False(t, event.Timestamp.IsZero())

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"email.due"`)
	assert.Contains(t, string(payload), `"job_id":"job-1"`)
}

func TestNewFlowStatusChanged(t *testing.T) {
	event := NewFlowStatusChanged("evt-2", "flow-1", models.FlowStatusRunning, models.FlowStatusCompleted)

	assert.Equal(t, FlowStatusChangedEvent, event.GetType())
	assert.Equal(t, models.FlowStatusRunning, event.From)
	assert.Equal(t, models.FlowStatusCompleted, event.To)
}
