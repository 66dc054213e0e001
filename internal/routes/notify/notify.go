package notifyRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	notifyService "github.com/nikhil/chapterhub/internal/service/notify"
)

func NotifyRoutes(router *mux.Router, protected []mux.MiddlewareFunc, ns *notifyService.NotifyService) {
	protectedRouter := router.PathPrefix("/notify").Subrouter()
	protectedRouter.Use(protected...)

	protectedRouter.HandleFunc("/{kind}", ns.Send).Methods(http.MethodPost)
}
