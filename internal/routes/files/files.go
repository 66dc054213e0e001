package fileRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	fileService "github.com/nikhil/chapterhub/internal/service/files"
)

func FileRoutes(router *mux.Router, protected []mux.MiddlewareFunc, fs *fileService.FileService) {
	protectedRouter := router.PathPrefix("/files").Subrouter()
	protectedRouter.Use(protected...)

	protectedRouter.HandleFunc("/upload-url", fs.UploadURL).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/download-url", fs.DownloadURL).Methods(http.MethodGet)
}
