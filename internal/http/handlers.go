package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.View(ParseFilter(r.URL.Query())))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid request body", log.FieldError, err)
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	tx, err := s.ledger.Add(r.Context(), p.NewTransaction())
	if err != nil {
		s.writeLedgerError(w, r, err, log.OpAdd)
		return
	}

	w.Header().Set("Location", "/api/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.ledger.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Transaction not found", "")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleDelete answers 204 whether or not the id existed.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Remove(r.Context(), r.PathValue("id")); err != nil {
		s.writeLedgerError(w, r, err, log.OpRemove)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Clear(r.Context()); err != nil {
		s.writeLedgerError(w, r, err, log.OpClear)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Summary())
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"months": s.ledger.Months()})
}

// writeLedgerError maps validation errors to 422 and everything else,
// which can only be a failed write, to 500.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusUnprocessableEntity, verr.Message, verr.Field)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Ledger update failed", err, op, nil)
	writeError(w, http.StatusInternalServerError, "Could not save transactions", "")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the durable slot with a short timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]interface{}{
		"ledger_size":    s.ledger.Len(),
		"active_clients": s.rateLimiter.activeClients(),
	}
	status, code := "ready", http.StatusOK
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
