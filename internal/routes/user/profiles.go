package userRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/handlers"
	profileService "github.com/nikhil/chapterhub/internal/service/users"
)

func UserProfileRoutes(router *mux.Router, protected []mux.MiddlewareFunc, profiles *profileService.ProfileService) {
	// Protected routes requiring authentication
	// no path prefix: "/me" would also prefix "/messages"
	protectedRouter := router.NewRoute().Subrouter()
	protectedRouter.Use(protected...)

	protectedRouter.HandleFunc("/me", handlers.Me).Methods(http.MethodGet)

	// User profile routes
	protectedRouter.HandleFunc("/me/profile", profiles.GetUserProfile).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/me/profile", profiles.UpdateUserProfile).Methods(http.MethodPut)
}
