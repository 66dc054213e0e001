package fileService

import (
	"context"
	"net/http"
	"strings"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/storage"
)

const maxFilenameLength = 200

// Presigner signs object URLs
type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (storage.Signed, error)
	PresignDownload(ctx context.Context, key string) (storage.Signed, error)
}

// FileService hands out presigned URLs for chapter files
type FileService struct {
	Storage Presigner // nil when storage is not configured
	Log     *logger.Logger
}

type uploadRequest struct {
	ChapterID   string `json:"chapter_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func NewFileService(p Presigner, log *logger.Logger) *FileService {
	return &FileService{Storage: p, Log: log.Named("file-service")}
}

func (fs *FileService) caller(w http.ResponseWriter, r *http.Request) (access.Caller, bool) {
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return caller, false
	}
	if !auth.CanAccess(caller.Roles(), auth.SectionFiles) {
		response.Error(w, http.StatusForbidden, "You don't have access to files")
		return caller, false
	}
	if fs.Storage == nil {
		response.Error(w, http.StatusServiceUnavailable, "File storage is not configured")
		return caller, false
	}
	return caller, true
}

// UploadURL signs a PUT for a new object under a chapter of the caller's scope
func (fs *FileService) UploadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := fs.caller(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Filename = strings.TrimSpace(req.Filename)
	if req.Filename == "" || len(req.Filename) > maxFilenameLength {
		response.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	chapterID := req.ChapterID
	if chapterID == "" {
		id, ok := caller.Scope.Concrete()
		if !ok {
			response.Error(w, http.StatusBadRequest, "chapter_id is required")
			return
		}
		chapterID = id
	}
	if !caller.Scope.Includes(chapterID) {
		response.Error(w, http.StatusForbidden, "You don't have access to this chapter")
		return
	}

	signed, err := fs.Storage.PresignUpload(r.Context(), storage.ObjectKey(chapterID, req.Filename), req.ContentType)
	if err != nil {
		access.Fail(w, r, fs.Log, "Failed to presign upload", err)
		return
	}
	fs.Log.WithContext(r.Context()).Info("Upload URL issued", "key", signed.Key, "team_member_id", caller.Member.ID)
	response.JSON(w, http.StatusOK, signed)
}

// DownloadURL signs a GET for an object of a chapter in the caller's scope
func (fs *FileService) DownloadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := fs.caller(w, r)
	if !ok {
		return
	}

	key := r.URL.Query().Get("key")
	chapterID, ok := storage.ChapterOf(key)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file key")
		return
	}
	if !caller.Scope.Includes(chapterID) {
		response.Error(w, http.StatusForbidden, "You don't have access to this file")
		return
	}

	signed, err := fs.Storage.PresignDownload(r.Context(), key)
	if err != nil {
		access.Fail(w, r, fs.Log, "Failed to presign download", err)
		return
	}
	response.JSON(w, http.StatusOK, signed)
}
