package chapterService

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/store"
)

// ChapterService serves the chapters visible to the caller
type ChapterService struct {
	Store *store.Store
	Log   *logger.Logger
}

// NewChapterService initializes a new chapter service
func NewChapterService(st *store.Store, log *logger.Logger) *ChapterService {
	return &ChapterService{Store: st, Log: log.Named("chapter-service")}
}

// ListChapters returns every chapter in the caller's scope
func (cs *ChapterService) ListChapters(w http.ResponseWriter, r *http.Request) {
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if caller.Scope.Empty() {
		response.JSON(w, http.StatusOK, map[string]interface{}{"chapters": []models.Chapter{}})
		return
	}

	chapters, err := cs.Store.ListChapters(r.Context(), caller.Scope.ChapterIDs, caller.Scope.Unrestricted)
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to list chapters", err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"chapters": chapters})
}

// GetChapter returns one chapter of the caller's scope
func (cs *ChapterService) GetChapter(w http.ResponseWriter, r *http.Request) {
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chapter, err := cs.Store.GetChapter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Chapter not found")
			return
		}
		access.Fail(w, r, cs.Log, "Failed to get chapter", err)
		return
	}
	if !caller.Scope.Includes(chapter.ID) {
		cs.Log.WithContext(r.Context()).Warn("Unauthorized chapter access attempt", "chapter_id", chapter.ID, "team_member_id", caller.Member.ID)
		response.Error(w, http.StatusForbidden, "You don't have access to this chapter")
		return
	}
	response.JSON(w, http.StatusOK, chapter)
}
