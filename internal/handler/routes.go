package handler

import "net/http"

// RegisterRoutes mounts the authenticated API on mux
func RegisterRoutes(mux *http.ServeMux, files *FilesHandler, documents *DocumentHandler) {
	mux.HandleFunc("GET /files", files.ListTree)
	mux.HandleFunc("POST /files/folder", files.CreateFolder)
	mux.HandleFunc("PATCH /files/folder", files.RenameFolder)
	mux.HandleFunc("DELETE /files/folder", files.DeleteFolder)
	mux.HandleFunc("POST /files/file", files.UploadFile)
	mux.HandleFunc("PATCH /files/file", files.RenameFile)
	mux.HandleFunc("DELETE /files/file", files.DeleteFile)
	mux.HandleFunc("POST /files/repair", files.Repair)

	mux.HandleFunc("POST /documents", documents.CreateDocument)
	mux.HandleFunc("GET /documents/{id}", documents.GetDocument)
	mux.HandleFunc("PUT /documents/{id}", documents.ReplaceDocument)
}
