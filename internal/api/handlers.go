package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/crmdesk/internal/customerservice"
	"github.com/starford/crmdesk/internal/derive"
	"github.com/starford/crmdesk/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *customerservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *customerservice.Service) *Handler {
	return &Handler{svc: svc}
}

func filterFromQuery(r *http.Request) derive.Filter {
	q := r.URL.Query()
	reminder, _ := strconv.ParseBool(q.Get("reminder"))
	return derive.Filter{
		Inactive:        q.Get("view") == "inactive",
		Search:          q.Get("q"),
		Source:          q.Get("source"),
		Industry:        q.Get("industry"),
		RequireReminder: reminder,
		Sort:            derive.ParseSortKey(q.Get("sort")),
	}
}

// ListCustomers handles GET /api/customers.
//
//	@Summary		List active or inactive customers
//	@Tags			customers
//	@Produce		json
//	@Param			view		query		string	false	"Partition"	Enums(active, inactive)
//	@Param			q			query		string	false	"Search term"
//	@Param			source		query		string	false	"Exact source label"
//	@Param			industry	query		string	false	"Industry substring"
//	@Param			reminder	query		bool	false	"Only customers with a reminder"
//	@Param			sort		query		string	false	"Sort key"	Enums(lastContact, name, firstContact)
//	@Success		200			{object}	CustomerListResponse
//	@Security		BearerAuth
//	@Router			/customers [get]
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListCustomers(r.Context(), filterFromQuery(r))
	writeJSON(w, http.StatusOK, CustomerListResponse{Customers: items, Total: len(items)})
}

// GetCustomer handles GET /api/customers/{id}.
//
//	@Summary		Get a customer with its history
//	@Tags			customers
//	@Produce		json
//	@Param			id	path		string	true	"Customer ID"
//	@Success		200	{object}	CustomerDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/customers/{id} [get]
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCustomer handles POST /api/customers.
//
//	@Summary		Create a customer
//	@Tags			customers
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Customer	true	"Customer to create"
//	@Success		201		{object}	models.Customer
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/customers [post]
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.Customer
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		writeError(w, "create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCustomer handles PUT /api/customers/{id}. The body replaces the record.
//
//	@Summary		Replace a customer
//	@Tags			customers
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Customer ID"
//	@Param			body	body		models.Customer	true	"Full customer record"
//	@Success		200		{object}	models.Customer
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/customers/{id} [put]
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.Customer
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCustomer handles DELETE /api/customers/{id}?confirm=true.
//
//	@Summary		Delete a customer
//	@Tags			customers
//	@Param			id		path	string	true	"Customer ID"
//	@Param			confirm	query	bool	true	"Must be true"
//	@Success		204		"Customer deleted"
//	@Failure		428		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/customers/{id} [delete]
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCustomer(r.Context(), chi.URLParam(r, "id"), confirmed(r)); err != nil {
		writeError(w, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/customers/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: history})
}

// AddNote handles POST /api/customers/{id}/notes.
//
//	@Summary		Add a note; sets last contact to today
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Customer ID"
//	@Param			body	body		NoteRequest	true	"Note"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/customers/{id}/notes [post]
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.AddNote(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, "add note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// EditNote handles PUT /api/customers/{id}/notes/{noteID}.
//
//	@Summary		Edit a note; recomputes last contact
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Customer ID"
//	@Param			noteID	path		string		true	"Note ID"
//	@Param			body	body		NoteRequest	true	"Note"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/customers/{id}/notes/{noteID} [put]
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.EditNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"), req.Content, req.Date)
	if err != nil {
		writeError(w, "edit note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SetReminder handles PUT /api/customers/{id}/reminder.
func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.SetReminder(r.Context(), chi.URLParam(r, "id"), req.NextSteps, req.ReminderDate)
	if err != nil {
		writeError(w, "set reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ClearReminder handles DELETE /api/customers/{id}/reminder.
func (h *Handler) ClearReminder(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.ClearReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "clear reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CompleteReminder handles POST /api/customers/{id}/reminder/complete.
func (h *Handler) CompleteReminder(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.CompleteReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "complete reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Doings handles GET /api/doings.
//
//	@Summary		Open reminders, earliest first
//	@Tags			doings
//	@Produce		json
//	@Param			limit	query		int	false	"Max results (0 = all)"
//	@Success		200		{object}	DoingsResponse
//	@Security		BearerAuth
//	@Router			/doings [get]
func (h *Handler) Doings(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, DoingsResponse{Doings: h.svc.Doings(r.Context(), limit)})
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dashboard(r.Context()))
}
