// Package web provides the HTTP handlers of the flow, lead source and email template API.
package web

import (
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/services"
)

// FlowRequest is the body of the save and update endpoints.
type FlowRequest struct {
	Name  string         `json:"name"`
	Nodes []*models.Node `json:"nodes"`
	Edges []*models.Edge `json:"edges"`
}

func (r FlowRequest) input() services.FlowInput {
	return services.FlowInput{Name: r.Name, Nodes: r.Nodes, Edges: r.Edges}
}

// LeadSourceRequest is the body of the lead source create and update endpoints.
type LeadSourceRequest struct {
	Name     string           `json:"name"`
	Contacts []models.Contact `json:"contacts"`
}

// EmailTemplateRequest is the body of the email template create and update endpoints.
type EmailTemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MessageResponse acknowledges an operation without a body of its own.
type MessageResponse struct {
	Message string `json:"message"`
}
