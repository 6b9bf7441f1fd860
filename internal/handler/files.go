package handler

import (
	"log/slog"
	"net/http"

	"filespace/internal/config"
	models "filespace/internal/domain/models/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
	"filespace/internal/httputil"
)

// FilesHandler serves the /files surface: tree listing plus file and folder
// create, rename and delete.
type FilesHandler struct {
	fileService   wsSvc.FileService
	folderService wsSvc.FolderService
	treeService   wsSvc.TreeService
	logger        *slog.Logger
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(fileService wsSvc.FileService, folderService wsSvc.FolderService, treeService wsSvc.TreeService, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		fileService:   fileService,
		folderService: folderService,
		treeService:   treeService,
		logger:        logger,
	}
}

// TreeResponse is the body of GET /files
type TreeResponse struct {
	Items []models.TreeItem `json:"items"`
}

// DeleteResponse echoes what was deleted
type DeleteResponse struct {
	Pathname     string `json:"pathname"`
	RelativePath string `json:"relativePath"`
	Deleted      bool   `json:"deleted"`
}

// ListTree returns the merged tree of the caller's namespace
// GET /files
func (h *FilesHandler) ListTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	items, err := h.treeService.ListTree(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, TreeResponse{Items: items})
}

// CreateFolder creates a folder
// POST /files/folder
func (h *FilesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.CreateFolderRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}
	req.OwnerID = userID

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// RenameFolder renames or moves a folder with its subtree
// PATCH /files/folder
func (h *FilesHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.RenameRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}
	req.OwnerID = userID

	folder, err := h.folderService.RenameFolder(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder with its subtree
// DELETE /files/folder
func (h *FilesHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.DeleteRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, req.Pathname); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleted(userID, req.Pathname))
}

// UploadFile stores the raw request body as a new file. Name and parent
// come from the query string; the Content-Type header is kept unless it is
// missing or generic, in which case the content is sniffed.
// POST /files/file?name=...&parentPath=...&docType=...
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	content, err := httputil.ReadBody(w, r, config.MaxUploadBytes)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	query := r.URL.Query()
	req := wsSvc.CreateFileRequest{
		OwnerID:    userID,
		Name:       query.Get("name"),
		ParentPath: query.Get("parentPath"),
		Content:    content,
	}
	if docType := query.Get("docType"); docType != "" {
		req.DocType = &docType
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		req.ContentType = ct
	}

	file, err := h.fileService.CreateFile(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// RenameFile renames or moves a file
// PATCH /files/file
func (h *FilesHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.RenameRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}
	req.OwnerID = userID

	file, err := h.fileService.RenameFile(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile deletes a file
// DELETE /files/file
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	var req wsSvc.DeleteRequest
	if !parseBody(w, r, h.logger, &req) {
		return
	}

	if err := h.fileService.DeleteFile(r.Context(), userID, req.Pathname); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleted(userID, req.Pathname))
}

// Repair reconciles the caller's records with the stored objects
// POST /files/repair
func (h *FilesHandler) Repair(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}

	report, err := h.treeService.Repair(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report)
}

func deleted(userID, pathname string) DeleteResponse {
	return DeleteResponse{
		Pathname:     pathname,
		RelativePath: models.RelativeTo(userID, pathname),
		Deleted:      true,
	}
}
