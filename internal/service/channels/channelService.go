package channelService

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/events"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/service/broadcast"
	"github.com/nikhil/chapterhub/internal/store"
)

const (
	maxNameLength        = 80
	maxDescriptionLength = 300
)

// ChannelService handles channel-related operations
type ChannelService struct {
	Store     *store.Store
	Log       *logger.Logger
	Broadcast *broadcast.Broadcaster
	Now       func() int64
}

// CreateChannelRequest represents the request body for channel creation
type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateChannelRequest represents the request body for channel updates
type UpdateChannelRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsArchived  *bool   `json:"is_archived"`
}

// ChannelDetail is a channel with the caller's membership
type ChannelDetail struct {
	Channel     models.Channel        `json:"channel"`
	MemberCount int                   `json:"member_count"`
	Membership  *models.ChannelMember `json:"membership"`
}

// NewChannelService initializes a new channel service
func NewChannelService(st *store.Store, log *logger.Logger, b *broadcast.Broadcaster) *ChannelService {
	return &ChannelService{
		Store:     st,
		Log:       log.Named("channel-service"),
		Broadcast: b,
		Now:       func() int64 { return time.Now().UnixMilli() },
	}
}

func validName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	return name, n >= 1 && n <= maxNameLength
}

func validDescription(desc string) (string, bool) {
	desc = strings.TrimSpace(desc)
	return desc, utf8.RuneCountInString(desc) <= maxDescriptionLength
}

// ListChannels returns the non-archived channels of the caller's chapter scope
func (cs *ChannelService) ListChannels(w http.ResponseWriter, r *http.Request) {
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if caller.Scope.Empty() {
		response.JSON(w, http.StatusOK, map[string]interface{}{"channels": []models.ChannelSummary{}})
		return
	}

	channels, err := cs.Store.ListChannels(r.Context(), caller.Member.ID, store.ChannelFilter{
		AllChapters: caller.Scope.Unrestricted,
		ChapterIDs:  caller.Scope.ChapterIDs,
	})
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to list channels", err)
		return
	}

	cs.Log.WithContext(r.Context()).Debug("Channels fetched from database", "team_member_id", caller.Member.ID, "count", len(channels))
	response.JSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

// CreateChannel handles the creation of a new channel in the caller's chapter.
// The creator becomes its admin in the same transaction.
func (cs *ChannelService) CreateChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if !auth.IsAdmin(caller.Roles()) {
		cs.Log.WithContext(ctx).Warn("Unauthorized channel creation attempt", "team_member_id", caller.Member.ID)
		response.Error(w, http.StatusForbidden, "Only admins can create channels")
		return
	}
	chapterID, ok := caller.Scope.Concrete()
	if !ok {
		response.Error(w, http.StatusBadRequest, "Select a single chapter before creating a channel")
		return
	}

	var req CreateChannelRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name, ok := validName(req.Name)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Channel name must be between 1 and 80 characters")
		return
	}
	desc, ok := validDescription(req.Description)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Description must be at most 300 characters")
		return
	}

	now := cs.Now()
	channel := models.Channel{
		Name:      name,
		ChapterID: chapterID,
		CreatedBy: caller.Member.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if desc != "" {
		channel.Description = &desc
	}

	if _, err := cs.Store.CreateChannelWithAdmin(ctx, &channel); err != nil {
		access.Fail(w, r, cs.Log, "Failed to create channel", err)
		return
	}

	cs.Log.WithContext(ctx).Audit("Channel created", "channel_id", channel.ID, "chapter_id", chapterID, "team_member_id", caller.Member.ID)
	cs.Broadcast.Publish(ctx, broadcast.Activity{
		Type:      events.ChannelCreated,
		ChannelID: channel.ID,
		ActorID:   caller.Member.ID,
		At:        now,
		Payload:   channel,
	})

	response.JSON(w, http.StatusCreated, channel)
}

// GetChannel retrieves a specific channel by ID
func (cs *ChannelService) GetChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	channel, err := access.Channel(ctx, cs.Store, caller, mux.Vars(r)["id"])
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to get channel details", err)
		return
	}

	detail := ChannelDetail{Channel: channel}
	membership, err := cs.Store.GetMembership(ctx, channel.ID, caller.Member.ID)
	switch {
	case err == nil:
		detail.Membership = &membership
	case !errors.Is(err, store.ErrNotFound):
		access.Fail(w, r, cs.Log, "Failed to get channel membership", err)
		return
	}
	if detail.MemberCount, err = cs.Store.CountMembers(ctx, channel.ID); err != nil {
		access.Fail(w, r, cs.Log, "Failed to count channel members", err)
		return
	}

	response.JSON(w, http.StatusOK, detail)
}

// UpdateChannel renames, describes, archives or unarchives a channel.
// Allowed for channel admins and for admins whose scope covers the channel.
func (cs *ChannelService) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	channel, err := access.Channel(ctx, cs.Store, caller, mux.Vars(r)["id"])
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to get channel", err)
		return
	}

	if !auth.IsAdmin(caller.Roles()) {
		membership, err := cs.Store.GetMembership(ctx, channel.ID, caller.Member.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			access.Fail(w, r, cs.Log, "Failed to check channel permissions", err)
			return
		}
		if err != nil || !membership.IsAdmin() {
			cs.Log.WithContext(ctx).Warn("Insufficient permissions for channel update", "channel_id", channel.ID, "team_member_id", caller.Member.ID)
			response.Error(w, http.StatusForbidden, "You don't have permission to update this channel")
			return
		}
	}

	var req UpdateChannelRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil && req.Description == nil && req.IsArchived == nil {
		response.Error(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	update := store.ChannelUpdate{IsArchived: req.IsArchived, UpdatedAt: cs.Now(), Reviver: caller.Member.ID}
	if req.Name != nil {
		name, ok := validName(*req.Name)
		if !ok {
			response.Error(w, http.StatusBadRequest, "Channel name must be between 1 and 80 characters")
			return
		}
		update.Name = &name
	}
	if req.Description != nil {
		desc, ok := validDescription(*req.Description)
		if !ok {
			response.Error(w, http.StatusBadRequest, "Description must be at most 300 characters")
			return
		}
		update.Description = &desc
	}

	if err := cs.Store.UpdateChannel(ctx, channel.ID, update); err != nil {
		access.Fail(w, r, cs.Log, "Failed to update channel", err)
		return
	}
	updated, err := cs.Store.GetChannel(ctx, channel.ID)
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to retrieve updated channel", err)
		return
	}

	if req.IsArchived != nil && *req.IsArchived != channel.IsArchived {
		cs.Log.WithContext(ctx).Audit("Channel archive state changed", "channel_id", channel.ID, "archived", *req.IsArchived, "team_member_id", caller.Member.ID)
	} else {
		cs.Log.WithContext(ctx).Info("Channel updated", "channel_id", channel.ID, "team_member_id", caller.Member.ID)
	}
	cs.Broadcast.Publish(ctx, broadcast.Activity{
		Type:      events.ChannelUpdated,
		ChannelID: channel.ID,
		ActorID:   caller.Member.ID,
		At:        updated.UpdatedAt,
		Payload:   updated,
	})

	response.JSON(w, http.StatusOK, updated)
}
