package api

import (
	"time"

	"github.com/fentz26/leadboard/internal/models"
)

// CreateLeadRequest is the body of POST /leads. Enum fields are checked while
// decoding, so an explicit empty string is rejected; omitted enums take store
// defaults.
type CreateLeadRequest struct {
	FirstName      string             `json:"first_name" validate:"required,max=100"`
	LastName       string             `json:"last_name" validate:"max=100"`
	Email          string             `json:"email" validate:"omitempty,email"`
	Phone          string             `json:"phone" validate:"required_without=Email,max=32"`
	Suburb         string             `json:"suburb" validate:"max=100"`
	Postcode       string             `json:"postcode" validate:"omitempty,numeric,len=4"`
	Address        string             `json:"address" validate:"max=255"`
	ServiceType    models.ServiceType `json:"service_type"`
	Urgency        models.Urgency     `json:"urgency"`
	Source         models.Source      `json:"source"`
	Status         models.Status      `json:"status"`
	EstimatedValue *float64           `json:"estimated_value" validate:"omitempty,gte=0"`
	Notes          string             `json:"notes" validate:"max=4000"`
	AssignedTo     string             `json:"assigned_to" validate:"max=100"`
}

func (r *CreateLeadRequest) toLead() *models.Lead {
	return &models.Lead{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Suburb:         r.Suburb,
		Postcode:       r.Postcode,
		Address:        r.Address,
		ServiceType:    r.ServiceType,
		Urgency:        r.Urgency,
		Source:         r.Source,
		Status:         r.Status,
		EstimatedValue: r.EstimatedValue,
		Notes:          r.Notes,
		AssignedTo:     r.AssignedTo,
	}
}

// UpdateLeadRequest is the body of PATCH /leads/:id. Absent fields are untouched.
type UpdateLeadRequest struct {
	FirstName      *string             `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string             `json:"last_name" validate:"omitempty,max=100"`
	Email          *string             `json:"email" validate:"omitempty,email"`
	Phone          *string             `json:"phone" validate:"omitempty,max=32"`
	Suburb         *string             `json:"suburb" validate:"omitempty,max=100"`
	Postcode       *string             `json:"postcode" validate:"omitempty,numeric,len=4"`
	Address        *string             `json:"address" validate:"omitempty,max=255"`
	ServiceType    *models.ServiceType `json:"service_type"`
	Urgency        *models.Urgency     `json:"urgency"`
	Source         *models.Source      `json:"source"`
	Status         *models.Status      `json:"status"`
	EstimatedValue *float64            `json:"estimated_value" validate:"omitempty,gte=0"`
	Notes          *string             `json:"notes" validate:"omitempty,max=4000"`
	AssignedTo     *string             `json:"assigned_to" validate:"omitempty,max=100"`
}

func (r *UpdateLeadRequest) toPatch() models.LeadPatch {
	return models.LeadPatch{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Suburb:         r.Suburb,
		Postcode:       r.Postcode,
		Address:        r.Address,
		ServiceType:    r.ServiceType,
		Urgency:        r.Urgency,
		Source:         r.Source,
		Status:         r.Status,
		EstimatedValue: r.EstimatedValue,
		Notes:          r.Notes,
		AssignedTo:     r.AssignedTo,
	}
}

// AddInspectionRequest is the body of POST /leads/:id/inspections.
type AddInspectionRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Inspector   string    `json:"inspector" validate:"max=100"`
	Findings    string    `json:"findings" validate:"max=4000"`
	Completed   bool      `json:"completed"`
}

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}
