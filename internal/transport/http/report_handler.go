// Package http exposes the report service over a chi router: report
// listings, asynchronous runs, run status and the rendered documents.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "insightcli/internal/errors"
	"insightcli/internal/operations"
	"insightcli/internal/services"
)

// ReportService is the slice of the service layer the handlers need.
type ReportService interface {
	ListReports() []services.ReportInfo
	StartRun(ctx context.Context, reportID string) (string, error)
	Status(runID string) (operations.RunSnapshot, error)
	Runs() []operations.RunSnapshot
}

// ReportHandler serves the report endpoints.
type ReportHandler struct {
	service    ReportService
	reportsDir string
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewReportHandler creates the handler. reportsDir is where rendered HTML
// documents live.
func NewReportHandler(service ReportService, reportsDir string, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		service:    service,
		reportsDir: reportsDir,
		logger:     logger.With(slog.String("handler", "report")),
		validate:   validator.New(),
	}
}

// RunResponse is the 202 body for an accepted run.
type RunResponse struct {
	RunID    string `json:"run_id"`
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

// List returns the registered reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"reports": h.service.ListReports()})
}

// Run starts an asynchronous report run and answers 202 with the run id.
func (h *ReportHandler) Run(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")
	if err := h.validate.Var(reportID, "required,alphanum,max=64"); err != nil {
		render.Render(w, r, apierrors.ErrValidation("id", "report id must be alphanumeric"))
		return
	}

	runID, err := h.service.StartRun(r.Context(), reportID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, RunResponse{
		RunID:    runID,
		ReportID: reportID,
		Status:   string(operations.RunStatusPending),
	})
}

// RunStatus returns the snapshot for one run.
func (h *ReportHandler) RunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	snap, err := h.service.Status(runID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// Runs lists every tracked run.
func (h *ReportHandler) Runs(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"runs": h.service.Runs()})
}

// Document serves the rendered HTML report.
func (h *ReportHandler) Document(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")
	if err := h.validate.Var(reportID, "required,alphanum,max=64"); err != nil {
		render.Render(w, r, apierrors.ErrValidation("id", "report id must be alphanumeric"))
		return
	}

	path := filepath.Join(h.reportsDir, reportID+".html")
	if _, err := os.Stat(path); err != nil {
		render.Render(w, r, apierrors.NotFoundError("report document"))
		return
	}
	http.ServeFile(w, r, path)
}

func (h *ReportHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownReport):
		render.Render(w, r, apierrors.ErrReportNotFound)
	case errors.Is(err, services.ErrRunNotFound):
		render.Render(w, r, apierrors.ErrRunNotFound)
	case errors.Is(err, services.ErrRunInProgress):
		render.Render(w, r, apierrors.ErrRunInProgress)
	default:
		h.logger.ErrorContext(r.Context(), "service error", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.InternalError(err))
	}
}
