package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/mngr/internal/errs"
	"github.com/koustreak/mngr/internal/form"
	"github.com/koustreak/mngr/internal/logger"
	"github.com/koustreak/mngr/internal/records"
)

const maxFormBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type tableRef struct {
	OID         uint32  `json:"oid"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type schemaListing struct {
	Name   string     `json:"name"`
	Tables []tableRef `json:"tables"`
}

type schemasResponse struct {
	// ShowSchemaNames is false when everything lives in one schema.
	ShowSchemaNames bool            `json:"show_schema_names"`
	Schemas         []schemaListing `json:"schemas"`
}

type reloadResponse struct {
	Schemas int `json:"schemas"`
	Tables  int `json:"tables"`
}

type submitResponse struct {
	Error string     `json:"error"`
	Form  *form.Form `json:"form"`
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.svc.Schemas()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := schemasResponse{
		ShowSchemaNames: len(schemas) > 1,
		Schemas:         make([]schemaListing, len(schemas)),
	}
	for i, sc := range schemas {
		listing := schemaListing{Name: sc.Name, Tables: make([]tableRef, len(sc.Tables))}
		for j, t := range sc.Tables {
			listing.Tables[j] = tableRef{OID: t.OID, Name: t.Name, Description: t.Description}
		}
		resp.Schemas[i] = listing
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	c, err := s.reloader.Reload(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Schemas: len(c.Schemas()), Tables: c.Len()})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	oid, ok := parseOID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.Describe(oid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	oid, ok := parseOID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := records.ListParams{
		SortColumn:    q.Get("sort_column"),
		SortDirection: q.Get("sort_direction"),
	}
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid page %q", p)})
			return
		}
		params.Page = n
	}

	page, err := s.svc.List(r.Context(), oid, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	oid, ok := parseOID(w, r)
	if !ok {
		return
	}
	f, err := s.svc.NewForm(oid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	oid, ok := parseOID(w, r)
	if !ok {
		return
	}
	values, ok := parseValues(w, r)
	if !ok {
		return
	}

	if err := s.svc.Create(r.Context(), oid, values); err != nil {
		writeSubmitError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/tables/%d/records", oid), http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	oid, ok := parseOID(w, r)
	if !ok {
		return
	}
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	f, err := s.svc.EditForm(r.Context(), oid, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	oid, ok := parseOID(w, r)
	if !ok {
		return
	}
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	values, ok := parseValues(w, r)
	if !ok {
		return
	}

	// An unchecked checkbox is not submitted at all; it means false.
	f, err := s.svc.NewForm(oid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, field := range f.Fields {
		if _, sent := values[field.Name]; !sent && field.Kind == form.Boolean {
			values[field.Name] = "false"
		}
	}

	if err := s.svc.Update(r.Context(), oid, key, values); err != nil {
		writeSubmitError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/tables/%d/records/%s/edit", oid, url.PathEscape(key)), http.StatusSeeOther)
}

// --- request parsing ---

func parseOID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := chi.URLParam(r, "oid")
	oid, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid table oid %q", raw)})
		return 0, false
	}
	return uint32(oid), true
}

func parseKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record key"})
		return "", false
	}
	return key, true
}

// parseValues reads a form-urlencoded body. Repeated keys keep the first
// value.
func parseValues(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form body"})
		return nil, false
	}

	values := make(map[string]string, len(r.PostForm))
	for name, vs := range r.PostForm {
		if len(vs) > 0 {
			values[name] = vs[0]
		}
	}
	return values, true
}

// --- responses ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeSubmitError answers a rejected write with the form and the values
// as they were submitted.
func writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	se, ok := records.AsSubmitError(err)
	if !ok {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, submitResponse{Error: se.Err.Error(), Form: se.Form})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

// statusFor maps an error kind to the HTTP status that describes it.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindDataIntegrity:
		return http.StatusUnprocessableEntity
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConnectionFailed, errs.ErrKindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
