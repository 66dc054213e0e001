package channelRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	channelService "github.com/nikhil/chapterhub/internal/service/channels"
	messageService "github.com/nikhil/chapterhub/internal/service/messages"
)

func ChannelRoutes(router *mux.Router, protected []mux.MiddlewareFunc, cs *channelService.ChannelService, ms *messageService.MessageService) {
	// Protected routes requiring authentication
	protectedRouter := router.PathPrefix("/channels").Subrouter()
	protectedRouter.Use(protected...)

	protectedRouter.HandleFunc("", cs.ListChannels).Methods(http.MethodGet)
	protectedRouter.HandleFunc("", cs.CreateChannel).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{id}", cs.GetChannel).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{id}", cs.UpdateChannel).Methods(http.MethodPatch)

	// Membership
	protectedRouter.HandleFunc("/{id}/members", cs.ListMembers).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{id}/members", cs.JoinChannel).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{id}/members", cs.LeaveChannel).Methods(http.MethodDelete)
	protectedRouter.HandleFunc("/{id}/members/{memberId}", cs.UpdateMemberRole).Methods(http.MethodPatch)
	protectedRouter.HandleFunc("/{id}/read", cs.MarkRead).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{id}/notifications", cs.GetNotifications).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{id}/notifications", cs.SetNotifications).Methods(http.MethodPut)

	protectedRouter.HandleFunc("/{id}/messages", ms.ListMessages).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{id}/messages", ms.SendMessage).Methods(http.MethodPost)

	messageRouter := router.PathPrefix("/messages").Subrouter()
	messageRouter.Use(protected...)
	messageRouter.HandleFunc("/{id}", ms.EditMessage).Methods(http.MethodPatch)
	messageRouter.HandleFunc("/{id}", ms.DeleteMessage).Methods(http.MethodDelete)
}
