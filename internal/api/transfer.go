package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/starford/crmdesk/internal/transfer"
)

const maxImportBytes = 20 << 20 // 20 MB

// Import handles POST /api/import (multipart/form-data, field "file").
//
//	@Summary		Import customers from a CSV or XLSX file
//	@Tags			transfer
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV or XLSX file"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
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
	res, err := h.svc.Import(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Export handles GET /api/export?format=csv|xlsx|json.
//
//	@Summary		Download customers or a full backup
//	@Tags			transfer
//	@Produce		octet-stream
//	@Param			format	query	string	false	"Format"	Enums(csv, xlsx, json)
//	@Success		200		"File download"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, "export", err)
		return
	}
	exp, err := h.svc.Export(r.Context(), f)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Data)
}

// Restore handles POST /api/restore?confirm=true with a JSON backup body.
//
//	@Summary		Replace all customers and settings from a backup
//	@Tags			transfer
//	@Accept			json
//	@Produce		json
//	@Param			confirm	query		bool	true	"Must be true"
//	@Success		200		{object}	RestoreResponse
//	@Failure		422		{object}	errResponse
//	@Failure		428		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	n, err := h.svc.Restore(r.Context(), data, confirmed(r))
	if err != nil {
		writeError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: n})
}
