package chapterRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	chapterService "github.com/nikhil/chapterhub/internal/service/chapters"
)

func ChapterRoutes(router *mux.Router, protected []mux.MiddlewareFunc, cs *chapterService.ChapterService) {
	protectedRouter := router.PathPrefix("/chapters").Subrouter()
	protectedRouter.Use(protected...)

	protectedRouter.HandleFunc("", cs.ListChapters).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{id}", cs.GetChapter).Methods(http.MethodGet)
}
