package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/crmdesk/internal/customerservice"
)

const maxLogoBytes = 2 << 20 // 2 MB

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// SetCompanyName handles PUT /api/settings/company.
func (h *Handler) SetCompanyName(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cs, err := h.svc.SetCompanyName(r.Context(), req.CompanyName)
	if err != nil {
		writeError(w, "set company name", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// UploadLogo handles POST /api/settings/logo (multipart/form-data, field "file").
// The image is stored inline as a base64 data URI.
//
//	@Summary		Upload the company logo
//	@Tags			settings
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	models.CompanySettings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/logo [post]
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		writeJSON(w, http.StatusBadRequest, errorBody("logo must be an image, got "+ct))
		return
	}
	uri := "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
	cs, err := h.svc.SetLogo(r.Context(), uri)
	if err != nil {
		writeError(w, "upload logo", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// DeleteLogo handles DELETE /api/settings/logo.
func (h *Handler) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.SetLogo(r.Context(), "")
	if err != nil {
		writeError(w, "delete logo", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// AddSource handles POST /api/settings/sources.
func (h *Handler) AddSource(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cs, err := h.svc.AddSource(r.Context(), req.Label)
	if err != nil {
		writeError(w, "add source", err)
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

// DeleteSource handles DELETE /api/settings/sources/{label}?confirm=true.
//
//	@Summary		Delete a source label; the last label cannot be deleted
//	@Tags			settings
//	@Produce		json
//	@Param			label	path		string	true	"Source label"
//	@Param			confirm	query		bool	true	"Must be true"
//	@Success		200		{object}	models.CompanySettings
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		428		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/sources/{label} [delete]
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if decoded, err := url.PathUnescape(label); err == nil {
		label = decoded
	}
	cs, err := h.svc.DeleteSource(r.Context(), label, confirmed(r))
	if err != nil {
		writeError(w, "delete source", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// GetPreferences handles GET /api/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Preferences(r.Context()))
}

// UpdatePreferences handles PUT /api/preferences. Only the keys present in
// the body change; "currentUser": null clears the identifier.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	var u customerservice.PreferencesUpdate
	if v, ok := raw["darkMode"]; ok {
		var on bool
		if err := json.Unmarshal(v, &on); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("darkMode must be a boolean"))
			return
		}
		u.DarkMode = &on
	}
	if v, ok := raw["currentUser"]; ok {
		if err := json.Unmarshal(v, &u.CurrentUser); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("currentUser must be a string or null"))
			return
		}
		u.SetUser = true
	}
	prefs, err := h.svc.UpdatePreferences(r.Context(), u)
	if err != nil {
		writeError(w, "update preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
