package handler

import (
	"log/slog"
	"net/http"

	wsSvc "filespace/internal/domain/services/workspace"
	"filespace/internal/httputil"
)

// DocumentHandler handles typed document HTTP requests
type DocumentHandler struct {
	documentService wsSvc.DocumentService
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService wsSvc.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// CreateDocument instantiates a document template
// POST /documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.CreateDocumentRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}
	req.OwnerID = userID

	file, err := h.documentService.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// GetDocument returns a document's record and content
// GET /documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ReplaceDocument overwrites a document's content
// PUT /documents/{id}
func (h *DocumentHandler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.ReplaceDocumentRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}
	req.OwnerID = userID
	req.ID = r.PathValue("id")

	file, err := h.documentService.ReplaceDocument(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}
