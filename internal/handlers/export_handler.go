package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"littletoes/internal/report"
	"littletoes/internal/service"
)

// ExportHandler serves the session report as an XLSX download and as an
// emailed summary.
type ExportHandler struct {
	mailer *service.ReportMailer
}

// NewExportHandler creates a new export handler
func NewExportHandler(mailer *service.ReportMailer) *ExportHandler {
	return &ExportHandler{mailer: mailer}
}

// Download handles GET /api/session/report
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	entries := ls.Controller.History().Snapshot()
	learnerName, unitID := ls.Controller.Learner()

	f, filename, err := report.Export(entries, learnerName, unitID, time.Now())
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			respondWithError(w, http.StatusConflict, "Answer at least one question before downloading a report", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to build report", "Error building report workbook", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("Error streaming report workbook")
	}
}

type emailReportRequest struct {
	To string `json:"to"`
}

// Email handles POST /api/session/report/email
func (h *ExportHandler) Email(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	if !h.mailer.IsEnabled() {
		respondWithError(w, http.StatusServiceUnavailable, "Email is not configured", "", nil)
		return
	}

	var req emailReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.To) == "" {
		respondWithError(w, http.StatusBadRequest, "A recipient email is required", "", nil)
		return
	}

	entries := ls.Controller.History().Snapshot()
	means, err := report.ComputeMeans(entries)
	if err != nil {
		respondWithError(w, http.StatusConflict, "Answer at least one question before emailing a report", "", nil)
		return
	}

	learnerName, unitID := ls.Controller.Learner()
	if err := h.mailer.SendReportSummary(r.Context(), strings.TrimSpace(req.To), learnerName, unitID, means, len(entries)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to send report email", "Error sending report email", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
