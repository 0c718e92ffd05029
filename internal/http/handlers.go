package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"seikyu/internal/core"
	"seikyu/internal/log"
	"seikyu/internal/render"
	"seikyu/internal/storage"
)

func detailCacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady performs a readiness check with dependency verification.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.svc.ListInvoices(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["cache"] = map[string]any{
		"list_entries":   s.listCache.Size(),
		"detail_entries": s.detailCache.Size(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Today          string
		DefaultTaxRate string
	}{
		Today:          time.Now().Format("2006-01-02"),
		DefaultTaxRate: "10",
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			"error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handlePreview runs the engine over the submitted snapshot without
// persisting anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeInvoicePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := payload.toInput()
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	computed, err := s.svc.Preview(r.Context(), in)
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, computedResponseFrom(*computed))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeInvoicePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := payload.toInput()
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	rec, err := s.svc.CreateInvoice(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, "create invoice")
		return
	}

	s.invalidateInvoice(rec.ID)
	s.reqLog.LogInvoiceCreated(r.Context(), rec.Number, rec.Meta.Client.Name, rec.Computed.Total.Yen)

	writeJSON(w, http.StatusCreated, invoiceResponseFrom(rec))
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	if summaries, found := s.listCache.Get(listCacheKey); found {
		writeJSON(w, http.StatusOK, map[string]any{"invoices": invoiceSummariesFrom(summaries)})
		return
	}

	summaries, err := s.svc.ListInvoices(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "list invoices")
		return
	}
	s.listCache.Set(listCacheKey, summaries)

	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoiceSummariesFrom(summaries)})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.getInvoiceCached(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "get invoice")
		return
	}

	writeJSON(w, http.StatusOK, invoiceResponseFrom(rec))
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := decodeInvoicePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := payload.toInput()
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	rec, err := s.svc.UpdateInvoice(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err, "update invoice")
		return
	}

	s.invalidateInvoice(id)
	writeJSON(w, http.StatusOK, invoiceResponseFrom(rec))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteInvoice(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "delete invoice")
		return
	}

	s.invalidateInvoice(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleInvoicePDF renders the stored invoice as a downloadable PDF.
func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.getInvoiceCached(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "get invoice for pdf")
		return
	}

	data, err := render.InvoicePDF(rec.Meta, rec.Computed)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "PDF render failed",
			"error", err, "id", rec.ID, "number", rec.Number)
		writeError(w, http.StatusInternalServerError, "failed to render pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Number+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.svc.GetDraft(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
			return
		}
		s.writeServiceError(w, r, err, "get draft")
		return
	}

	// The payload is the client's own JSON snapshot, returned verbatim.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(draft.Payload)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(payload) == 0 || !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "draft payload must be JSON")
		return
	}

	if err := s.svc.SaveDraft(r.Context(), r.PathValue("key"), payload); err != nil {
		s.writeServiceError(w, r, err, "save draft")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteDraft(r.Context(), r.PathValue("key")); err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
			return
		}
		s.writeServiceError(w, r, err, "delete draft")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// getInvoiceCached fetches an invoice through the detail cache.
func (s *Server) getInvoiceCached(ctx context.Context, id int64) (*storage.InvoiceRecord, error) {
	if rec, found := s.detailCache.Get(detailCacheKey(id)); found {
		return rec, nil
	}

	rec, err := s.svc.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.detailCache.Set(detailCacheKey(id), rec)
	return rec, nil
}

// writeValidationError maps engine rejections to 422 with the
// offending field; anything else is a plain 400.
func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		writeFieldError(w, http.StatusUnprocessableEntity, verr.Field, verr.Err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, storage.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "invoice not found")
	case errors.Is(err, storage.ErrDraftNotFound):
		writeError(w, http.StatusNotFound, "draft not found")
	default:
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			writeFieldError(w, http.StatusUnprocessableEntity, verr.Field, verr.Err.Error())
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"error", err, log.FieldOperation, op, log.FieldPath, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
