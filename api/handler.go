package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/invoicetosheet/ocr-service/internal/ai"
	"github.com/invoicetosheet/ocr-service/internal/auth"
	"github.com/invoicetosheet/ocr-service/internal/db"
	"github.com/invoicetosheet/ocr-service/internal/models"
	"github.com/invoicetosheet/ocr-service/internal/ocr"
	"github.com/invoicetosheet/ocr-service/internal/processor"
	"github.com/invoicetosheet/ocr-service/internal/sheets"
	"github.com/invoicetosheet/ocr-service/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

var startTime = time.Now()

// Handler handles HTTP requests for invoice processing.
type Handler struct {
	config *models.Config
	proc   *processor.Processor
}

// NewHandler creates the API handler with the configured extraction
// backend.
func NewHandler(config *models.Config) (*Handler, error) {
	var extractor processor.Extractor
	switch config.ExtractionBackend {
	case "ai":
		provider, err := createProvider(config)
		if err != nil {
			return nil, err
		}
		extractor = ai.NewExtractor(provider, config.OCR.MaxPages)
	default:
		extractor = ocr.NewService(config.OCR)
	}

	return &Handler{
		config: config,
		proc:   processor.New(extractor, config.ExtractionBackend),
	}, nil
}

func createProvider(config *models.Config) (ai.Provider, error) {
	switch config.AI.DefaultProvider {
	case "openai", "":
		if config.AI.OpenAI.APIKey == "" {
			return nil, errors.New("ai backend requires an OpenAI API key")
		}
		return ai.NewOpenAIProvider(
			config.AI.OpenAI.APIKey,
			config.AI.OpenAI.BaseURL,
			config.AI.OpenAI.Model,
		), nil
	case "gemini":
		if config.AI.Gemini.APIKey == "" {
			return nil, errors.New("ai backend requires a Gemini API key")
		}
		return ai.NewGeminiProvider(config.AI.Gemini.APIKey, config.AI.Gemini.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", config.AI.DefaultProvider)
	}
}

// SetupRoutes configures the HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/process-invoice", h.ProcessInvoice).Methods("POST")
	router.HandleFunc("/api/usage", h.GetUsage).Methods("GET")
	router.HandleFunc("/api/profile", h.GetProfile).Methods("GET")
	router.HandleFunc("/api/profile/sheet-id", h.UpdateSheetID).Methods("PUT")
	router.HandleFunc("/api/profile/refresh-token", h.SaveRefreshToken).Methods("POST")
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Backend   string        `json:"extraction_backend"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Memory    MemoryStats   `json:"memory"`
	Tesseract ServiceStatus `json:"tesseract"`
	Database  ServiceStatus `json:"database"`
	Storage   ServiceStatus `json:"storage"`
}

// MemoryStats represents memory usage statistics.
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency.
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health endpoint — reports dependency availability for monitoring.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := checkTesseract()

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Backend:   h.config.ExtractionBackend,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Database:  checkDatabase(),
		Storage:   checkStorage(),
	}

	// Recognition is only critical for the local backend.
	if h.config.ExtractionBackend != "ai" && !tesseractStatus.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func checkTesseract() ServiceStatus {
	output, err := exec.Command("tesseract", "--version").CombinedOutput()
	if err != nil {
		return ServiceStatus{Available: false, Error: "tesseract not found or not executable"}
	}

	version := "unknown"
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}
	return ServiceStatus{Available: true, Version: version}
}

func checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{Available: false, Error: "database pool not initialized"}
	}
	return ServiceStatus{Available: true, Version: "PostgreSQL"}
}

func checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{Available: false, Error: "storage client not initialized"}
	}
	return ServiceStatus{Available: true, Version: "MinIO S3"}
}

// usageRecorder adapts the db usage-log functions to the processor's
// UsageRecorder for one log row.
type usageRecorder struct {
	logID uuid.UUID
}

func (u usageRecorder) MarkSuccess(ctx context.Context, extractedJSON string, elapsedMS int64, tokens int) error {
	return db.MarkUsageSuccess(ctx, u.logID, extractedJSON, elapsedMS, tokens)
}

func (u usageRecorder) MarkFailed(ctx context.Context, message string, elapsedMS int64) error {
	return db.MarkUsageFailed(ctx, u.logID, message, elapsedMS)
}

// ProcessInvoice handles one multipart upload end to end: auth, usage
// limit, archive, extraction, sheet delivery, usage accounting.
func (h *Handler) ProcessInvoice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid user id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "file too large or invalid form data")
		return
	}

	// Accept both "file" and "image" field names.
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "no file provided (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	filename := header.Filename
	if filename == "" {
		filename = "invoice"
	}

	job := processor.Job{
		Data:        data,
		Filename:    filename,
		ContentType: contentType,
	}

	if db.Pool != nil {
		profile, err := db.GetProfile(ctx, userID)
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, "failed to load profile")
			return
		}
		if profile == nil {
			h.sendError(w, http.StatusNotFound, "user profile not found")
			return
		}

		usage, err := db.MonthlyUsage(ctx, userID)
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, "failed to check usage")
			return
		}
		if usage.CurrentUsage >= usage.MonthlyLimit {
			h.sendError(w, http.StatusTooManyRequests,
				fmt.Sprintf("monthly limit of %d reached", usage.MonthlyLimit))
			return
		}

		logID, err := db.CreateUsageLog(ctx, userID, filename, int64(len(data)))
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, "failed to create usage log")
			return
		}
		job.Usage = usageRecorder{logID: logID}

		if profile.GoogleRefreshToken != "" && profile.TargetSheetID != "" {
			job.Sheets = sheets.NewWriter(h.config.Sheets, profile.GoogleRefreshToken)
			job.SheetID = profile.TargetSheetID
		}
	}

	// Archive the original before any processing so failed runs can be
	// replayed.
	if storage.Client != nil {
		archiveName := fmt.Sprintf("%s_%s%s",
			time.Now().Format("20060102_150405"),
			uuid.New().String()[:8],
			storage.FileExtension(contentType),
		)
		if _, aerr := storage.ArchiveOriginal(ctx, claims.UserID, archiveName,
			bytes.NewReader(data), int64(len(data)), contentType); aerr != nil {
			log.Warn().Err(aerr).Msg("failed to archive original")
		}
	}

	result, err := h.proc.Process(ctx, job)
	if err != nil {
		h.sendExtractionError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// sendExtractionError maps pipeline errors to HTTP statuses.
func (h *Handler) sendExtractionError(w http.ResponseWriter, err error) {
	var qerr *ocr.QualityError
	switch {
	case errors.Is(err, ocr.ErrUnsupportedInput):
		h.sendError(w, http.StatusUnsupportedMediaType, "unsupported file type")
	case errors.As(err, &qerr):
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":     qerr.Remediation(),
			"reason":    qerr.Reason,
			"measured":  qerr.Measured,
			"threshold": qerr.Threshold,
		})
	case errors.Is(err, ocr.ErrRecognitionUnavailable):
		h.sendError(w, http.StatusServiceUnavailable, "text recognition is not available")
	case errors.Is(err, ocr.ErrRecognitionFailed):
		h.sendError(w, http.StatusUnprocessableEntity, "no text could be recognized")
	default:
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetUsage returns the caller's monthly usage statistics.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid user id")
		return
	}
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	usage, err := db.MonthlyUsage(ctx, userID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get usage")
		return
	}

	json.NewEncoder(w).Encode(usage)
}

// GetProfile returns the caller's profile and configuration.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid user id")
		return
	}
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	profile, err := db.GetProfile(ctx, userID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":              claims.UserID,
			"email":           nil,
			"target_sheet_id": nil,
			"monthly_limit":   100,
		})
		return
	}

	json.NewEncoder(w).Encode(profile)
}

// UpdateSheetID sets the caller's target spreadsheet.
func (h *Handler) UpdateSheetID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid user id")
		return
	}
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var body struct {
		SheetID string `json:"sheet_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SheetID == "" {
		h.sendError(w, http.StatusBadRequest, "sheet_id is required")
		return
	}

	if err := db.UpsertTargetSheet(ctx, userID, claims.Email, body.SheetID); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to update sheet id")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"sheet_id": body.SheetID,
	})
}

// SaveRefreshToken stores the Google OAuth refresh token obtained by
// the frontend after the user authorizes spreadsheet access.
func (h *Handler) SaveRefreshToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid user id")
		return
	}
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
		Email        string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		h.sendError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := db.UpsertRefreshToken(ctx, userID, body.Email, body.RefreshToken); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to save refresh token")
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
