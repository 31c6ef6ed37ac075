package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	perrors "github.com/pickit-labs/pickit/internal/errors"
	"github.com/pickit-labs/pickit/internal/job"
	"github.com/pickit-labs/pickit/internal/logfields"
	"github.com/pickit-labs/pickit/internal/shop"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes v into an intermediate buffer so that a failed
// encode never sends a partial response.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if perrors.IsCategory(err, perrors.CategoryValidation) {
		status = http.StatusBadRequest
	}
	_ = writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Job endpoints

func (s *Server) handleGetJob(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]*job.PrintJob{"job": s.store.ActiveJob()})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req job.Request
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := s.store.CreateJob(req)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleApplyStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status job.Status `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := s.store.ApplyStatus(r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]*job.PrintJob{"job": updated})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string][]job.PrintJob{"history": s.store.History()})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req job.Request
	if !decodeBody(w, r, &req) {
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]int{"cost": s.store.Quote(req)})
}

// Shop endpoints

func (s *Server) handleGetShop(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, s.store.Shop())
}

func (s *Server) handleSetShop(w http.ResponseWriter, r *http.Request) {
	var cfg shop.Shop
	if !decodeBody(w, r, &cfg) {
		return
	}
	if cfg.ID == "" {
		writeError(w, perrors.ValidationFailed("id", "must not be empty"))
		return
	}
	s.store.SetShop(cfg)
	_ = writeJSON(w, http.StatusOK, s.store.Shop())
}

func (s *Server) handleLinkShop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShopID string `json:"shopId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ShopID == "" {
		writeError(w, perrors.ValidationFailed("shopId", "must not be empty"))
		return
	}
	s.store.LinkShop(req.ShopID)
	_ = writeJSON(w, http.StatusOK, map[string]string{"linked": req.ShopID})
}

func (s *Server) handleUnlinkShop(w http.ResponseWriter, _ *http.Request) {
	s.store.UnlinkShop()
	_ = writeJSON(w, http.StatusOK, map[string]bool{"linked": false})
}

// Session and device endpoints

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	shopID, linked := s.store.LinkedShop()
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"state":  s.sessions.State(),
		"role":   s.store.Role(),
		"shopId": shopID,
		"linked": linked,
	})
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Role != "shop" && req.Role != "customer" {
		writeError(w, perrors.ValidationFailed("role", "must be shop or customer"))
		return
	}
	s.store.SetRole(req.Role)
	_ = writeJSON(w, http.StatusOK, map[string]string{"role": req.Role})
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"theme": s.store.Theme()})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.store.SetTheme(req.Theme)
	_ = writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}
