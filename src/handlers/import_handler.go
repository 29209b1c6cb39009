package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/folioimport/src/config"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/parsers"
	"github.com/username/folioimport/src/security/validation"
	"github.com/username/folioimport/src/services"
	"github.com/username/folioimport/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: service,
	}
}

// HandleCreateSession accepts a multipart holdings file, materializes it into
// an import session and runs the initial validation round.
func (h *ImportHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		logger.L.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.L.Info("Processing import upload", "filename", fileHeader.Filename, "size", fileHeader.Size)
	snapshot, err := h.importService.CreateSession(r.Context(), file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, parsers.ErrUnsupportedFile):
			utils.SendJSONError(w, "Unsupported file type. Accepted: .csv, .tsv, .xls, .xlsx", http.StatusBadRequest)
		case errors.Is(err, parsers.ErrNoColumns):
			utils.SendJSONError(w, "No ticker or price column found. No rows parsed; please check the file and re-upload.", http.StatusBadRequest)
		case errors.Is(err, services.ErrParsingFailed):
			utils.SendJSONError(w, fmt.Sprintf("Error parsing file: %v", err), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error creating import session", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, snapshot, http.StatusCreated)
}

func (h *ImportHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.importService.GetSession(r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, snapshot, http.StatusOK)
}

// HandleUpdateTicker stores a draft ticker edit for one row and kicks off the
// debounced suggestion search. The row keeps its status while the user types.
func (h *ImportHandler) HandleUpdateTicker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ticker string `json:"ticker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body: expected {\"ticker\": \"...\"}", http.StatusBadRequest)
		return
	}

	err := h.importService.UpdateTicker(r.PathValue("id"), r.PathValue("rowID"), body.Ticker)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImportHandler) HandleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.importService.GetSuggestions(r.PathValue("id"), r.PathValue("rowID"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"suggestions": suggestions}, http.StatusOK)
}

// HandleSelectSuggestion applies a chosen suggestion to a row and revalidates
// the whole batch.
func (h *ImportHandler) HandleSelectSuggestion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Symbol == "" {
		utils.SendJSONError(w, "Invalid request body: expected {\"symbol\": \"...\"}", http.StatusBadRequest)
		return
	}

	snapshot, err := h.importService.SelectSuggestion(r.Context(), r.PathValue("id"), r.PathValue("rowID"), body.Symbol)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, snapshot, http.StatusOK)
}

func (h *ImportHandler) HandleRevalidate(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.importService.Revalidate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, snapshot, http.StatusOK)
}

// HandleCommit submits all valid rows as one batched position-creation call.
// Partial success is reported as-is, not rolled back.
func (h *ImportHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PortfolioID int64 `json:"portfolio_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body: expected {\"portfolio_id\": ...}", http.StatusBadRequest)
		return
	}

	report, err := h.importService.Commit(r.Context(), r.PathValue("id"), body.PortfolioID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, report, http.StatusOK)
}

func (h *ImportHandler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	h.importService.CloseSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImportHandler) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.SendJSONError(w, "Import session not found or expired. Please re-upload the file.", http.StatusNotFound)
	case errors.Is(err, services.ErrRowNotFound):
		utils.SendJSONError(w, "Row not found in this import session.", http.StatusNotFound)
	case errors.Is(err, services.ErrCommitInFlight):
		utils.SendJSONError(w, "An import is already in progress for this session.", http.StatusConflict)
	case errors.Is(err, services.ErrNoPortfolio):
		utils.SendJSONError(w, "A portfolio must be selected before importing.", http.StatusBadRequest)
	case errors.Is(err, services.ErrNothingToImport):
		utils.SendJSONError(w, "No valid rows to import. Resolve tickers first.", http.StatusBadRequest)
	default:
		logger.L.Error("Internal error in import handler", "error", err)
		utils.SendJSONError(w, "An internal error occurred.", http.StatusInternalServerError)
	}
}
