// Package models defines the core domain types for the lead pipeline.
package models

import (
	"strings"
	"time"
)

// Lead is a prospective customer inquiry tracked through the pipeline.
type Lead struct {
	ID             string       `json:"id"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Suburb         string       `json:"suburb"`
	Postcode       string       `json:"postcode"`
	Address        string       `json:"address"`
	ServiceType    ServiceType  `json:"service_type,omitempty"`
	Urgency        Urgency      `json:"urgency,omitempty"`
	Source         Source       `json:"source,omitempty"`
	Status         Status       `json:"status,omitempty"`
	EstimatedValue *float64     `json:"estimated_value,omitempty"`
	Notes          string       `json:"notes"`
	AssignedTo     string       `json:"assigned_to,omitempty"`
	Inspections    []Inspection `json:"inspections,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// FullName returns "first last" with surrounding space trimmed.
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Inspection is a site visit booked against a lead.
type Inspection struct {
	ID          string    `json:"id"`
	LeadID      string    `json:"lead_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Inspector   string    `json:"inspector,omitempty"`
	Findings    string    `json:"findings,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// LeadPatch carries a partial lead update. Nil fields are left untouched.
type LeadPatch struct {
	FirstName      *string      `json:"first_name,omitempty"`
	LastName       *string      `json:"last_name,omitempty"`
	Email          *string      `json:"email,omitempty"`
	Phone          *string      `json:"phone,omitempty"`
	Suburb         *string      `json:"suburb,omitempty"`
	Postcode       *string      `json:"postcode,omitempty"`
	Address        *string      `json:"address,omitempty"`
	ServiceType    *ServiceType `json:"service_type,omitempty"`
	Urgency        *Urgency     `json:"urgency,omitempty"`
	Source         *Source      `json:"source,omitempty"`
	Status         *Status      `json:"status,omitempty"`
	EstimatedValue *float64     `json:"estimated_value,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	AssignedTo     *string      `json:"assigned_to,omitempty"`
}

// StatusPatch is the patch issued by a pipeline move.
func StatusPatch(s Status) LeadPatch {
	return LeadPatch{Status: &s}
}

// IsEmpty reports whether the patch changes nothing.
func (p LeadPatch) IsEmpty() bool {
	return p == LeadPatch{}
}

// Apply copies the set fields of p onto l.
func (p LeadPatch) Apply(l *Lead) {
	setString(&l.FirstName, p.FirstName)
	setString(&l.LastName, p.LastName)
	setString(&l.Email, p.Email)
	setString(&l.Phone, p.Phone)
	setString(&l.Suburb, p.Suburb)
	setString(&l.Postcode, p.Postcode)
	setString(&l.Address, p.Address)
	setString(&l.Notes, p.Notes)
	setString(&l.AssignedTo, p.AssignedTo)
	if p.ServiceType != nil {
		l.ServiceType = *p.ServiceType
	}
	if p.Urgency != nil {
		l.Urgency = *p.Urgency
	}
	if p.Source != nil {
		l.Source = *p.Source
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.EstimatedValue != nil {
		v := *p.EstimatedValue
		l.EstimatedValue = &v
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// LeadEvent is an audit record of a state-mutating action on a lead.
type LeadEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	LeadID     string    `json:"lead_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
