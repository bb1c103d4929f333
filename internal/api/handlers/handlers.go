package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/finlens/statement-analyzer/internal/api/middleware"
	"github.com/finlens/statement-analyzer/internal/domain"
	"github.com/finlens/statement-analyzer/internal/jobs"
	"github.com/finlens/statement-analyzer/internal/store"
)

// maxUploadBytes caps statement uploads. Bank statements are rarely over
// a few megabytes; anything larger is likely not a statement.
const maxUploadBytes = 20 << 20

// StatementAnalyzer runs the extraction pipeline over one document.
type StatementAnalyzer interface {
	Analyze(ctx context.Context, doc *domain.RawDocument, userID string) *domain.AnalysisResult
}

// StatementsHandler handles statement upload and analysis endpoints.
type StatementsHandler struct {
	analyzer  StatementAnalyzer
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler. publisher may be
// nil when async jobs are not configured.
func NewStatementsHandler(analyzer StatementAnalyzer, publisher jobs.Publisher, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		analyzer:  analyzer,
		publisher: publisher,
		log:       log,
	}
}

// AnalyzeStatement handles POST /api/statements/analyze.
// It accepts a multipart upload and runs the pipeline synchronously.
func (h *StatementsHandler) AnalyzeStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	doc := &domain.RawDocument{
		Data:     data,
		MimeType: mimeType,
		Filename: filepath.Base(header.Filename),
	}
	userID := r.FormValue("user_id")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}

	result := h.analyzer.Analyze(ctx, doc, userID)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	middleware.WriteJSON(w, status, result)
}

// EnqueueAnalysis handles POST /api/statements/jobs.
// The statement must already live in GCS; the worker fetches and analyzes it.
func (h *StatementsHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Async analysis is not configured")
		return
	}

	var req struct {
		GCSURI string `json:"gcs_uri"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri is required")
		return
	}

	ctx := r.Context()

	job := &jobs.AnalyzeStatementJob{
		GCSURI: req.GCSURI,
		UserID: req.UserID,
	}
	if err := h.publisher.PublishAnalyzeStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": req.GCSURI,
		"status":  string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store store.TransactionStore
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: store,
		log:   log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	userID := query.Get("user_id")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 100
	if limitStr := query.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	transactions, err := h.store.ListTransactionsByUser(ctx, userID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}
