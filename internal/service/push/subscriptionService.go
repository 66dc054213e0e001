package pushService

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/middleware"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/store"
)

const maxEndpointLength = 500

// SubscriptionService registers browser push endpoints
type SubscriptionService struct {
	Store          *store.Store
	Log            *logger.Logger
	VAPIDPublicKey string
	Now            func() int64
}

// subscribeRequest mirrors PushSubscription.toJSON() in the browser
type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func NewSubscriptionService(st *store.Store, log *logger.Logger, vapidPublicKey string) *SubscriptionService {
	return &SubscriptionService{
		Store:          st,
		Log:            log.Named("push-service"),
		VAPIDPublicKey: vapidPublicKey,
		Now:            func() int64 { return time.Now().UnixMilli() },
	}
}

func validEndpoint(endpoint string) bool {
	if endpoint == "" || len(endpoint) > maxEndpointLength {
		return false
	}
	u, err := url.Parse(endpoint)
	return err == nil && u.Scheme == "https" && u.Host != ""
}

// PublicKey returns the VAPID key browsers subscribe with
func (ps *SubscriptionService) PublicKey(w http.ResponseWriter, r *http.Request) {
	if ps.VAPIDPublicKey == "" {
		response.Error(w, http.StatusNotFound, "Push notifications are not configured")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"public_key": ps.VAPIDPublicKey})
}

// Subscribe creates or refreshes the caller's subscription for an endpoint
func (ps *SubscriptionService) Subscribe(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.CurrentMember(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req subscribeRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validEndpoint(req.Endpoint) {
		response.Error(w, http.StatusBadRequest, "endpoint must be an https URL")
		return
	}
	if req.Keys.P256dh == "" || req.Keys.Auth == "" {
		response.Error(w, http.StatusBadRequest, "keys.p256dh and keys.auth are required")
		return
	}

	now := ps.Now()
	sub := models.PushSubscription{
		TeamMemberID: member.ID,
		Endpoint:     req.Endpoint,
		P256dh:       req.Keys.P256dh,
		Auth:         req.Keys.Auth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ps.Store.UpsertPushSubscription(r.Context(), &sub); err != nil {
		access.Fail(w, r, ps.Log, "Failed to save push subscription", err)
		return
	}
	response.JSON(w, http.StatusOK, sub)
}

// Unsubscribe removes the caller's subscription for an endpoint
func (ps *SubscriptionService) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.CurrentMember(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req unsubscribeRequest
	if err := response.Decode(r, &req); err != nil || req.Endpoint == "" {
		response.Error(w, http.StatusBadRequest, "endpoint is required")
		return
	}
	err := ps.Store.DeletePushSubscription(r.Context(), member.ID, req.Endpoint)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "Subscription not found")
		return
	}
	if err != nil {
		access.Fail(w, r, ps.Log, "Failed to delete push subscription", err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Unsubscribed"})
}
