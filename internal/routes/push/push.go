package pushRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	pushService "github.com/nikhil/chapterhub/internal/service/push"
)

func PushRoutes(router *mux.Router, protected []mux.MiddlewareFunc, ps *pushService.SubscriptionService) {
	protectedRouter := router.PathPrefix("/push-subscription").Subrouter()
	protectedRouter.Use(protected...)

	protectedRouter.HandleFunc("", ps.Subscribe).Methods(http.MethodPost)
	protectedRouter.HandleFunc("", ps.Unsubscribe).Methods(http.MethodDelete)
	protectedRouter.HandleFunc("/vapid-public-key", ps.PublicKey).Methods(http.MethodGet)
}
