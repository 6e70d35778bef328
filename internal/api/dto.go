package api

import (
	"github.com/starford/crmdesk/internal/customerservice"
	"github.com/starford/crmdesk/internal/derive"
	"github.com/starford/crmdesk/internal/models"
)

// CustomerDetail is a customer with its combined history (aliased from the domain layer).
type CustomerDetail = customerservice.CustomerDetail

// CustomerListResponse wraps customer listings.
type CustomerListResponse struct {
	Customers []models.Customer `json:"customers" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// HistoryResponse wraps a customer's combined history.
type HistoryResponse struct {
	History []models.Note `json:"history" validate:"required"`
}

// NoteRequest is the request body for adding or editing a note.
type NoteRequest struct {
	Content string `json:"content" example:"Called, sent brochure" validate:"required"`
	// Date is only honoured when editing; empty keeps the note's timestamp.
	Date models.Timestamp `json:"date,omitempty" example:"2026-10-18T09:30:00.000Z"`
}

// ReminderRequest is the request body for opening a doing.
type ReminderRequest struct {
	NextSteps    string      `json:"nextSteps" example:"Send offer"`
	ReminderDate models.Date `json:"reminderDate" example:"2026-10-25" validate:"required"`
}

// DoingsResponse wraps the open reminders.
type DoingsResponse struct {
	Doings []derive.Reminder `json:"doings" validate:"required"`
}

// ImportResponse is returned after a file import (aliased from the domain layer).
type ImportResponse = customerservice.ImportResult

// RestoreResponse is returned after a backup restore.
type RestoreResponse struct {
	Restored int `json:"restored" example:"12" validate:"required"`
}

// CompanyRequest is the request body for renaming the own company.
type CompanyRequest struct {
	CompanyName string `json:"companyName" example:"Starford GmbH" validate:"required"`
}

// SourceRequest is the request body for adding a source label.
type SourceRequest struct {
	Label string `json:"label" example:"Newsletter" validate:"required"`
}
