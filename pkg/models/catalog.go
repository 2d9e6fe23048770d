package models

import (
	"strings"
	"time"
)

// Contact is a single recipient of a lead source.
type Contact struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Address is the contact's email with surrounding whitespace removed. It is
// the form both checked and sent to.
func (c Contact) Address() string {
	return strings.TrimSpace(c.Email)
}

// NormalizeContacts returns contacts with their name and email trimmed.
func NormalizeContacts(contacts []Contact) []Contact {
	if contacts == nil {
		return nil
	}

	out := make([]Contact, 0, len(contacts))

	for _, contact := range contacts {
		out = append(out, Contact{Name: strings.TrimSpace(contact.Name), Email: contact.Address()})
	}

	return out
}

// LeadSource is a named list of contacts owned by a user.
type LeadSource struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"     validate:"required"`
	Contacts  []Contact `json:"contacts" validate:"required,min=1,dive"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailTemplate is the subject and HTML body sent by a cold email node.
type EmailTemplate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"    validate:"required"`
	Subject   string    `json:"subject" validate:"required"`
	Body      string    `json:"body"    validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
