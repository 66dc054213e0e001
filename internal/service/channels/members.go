package channelService

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/store"
)

type updateRoleRequest struct {
	Role string `json:"role"`
}

type notificationsRequest struct {
	Enabled *bool `json:"enabled"`
}

// ListMembers returns the channel's members. Only members may see them.
func (cs *ChannelService) ListMembers(w http.ResponseWriter, r *http.Request) {
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
	if _, err := access.Membership(ctx, cs.Store, caller, channel.ID); err != nil {
		access.Fail(w, r, cs.Log, "Failed to check channel membership", err)
		return
	}

	members, err := cs.Store.ListMembers(ctx, channel.ID)
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to list channel members", err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// JoinChannel adds the caller to a channel of their scope as a regular member
func (cs *ChannelService) JoinChannel(w http.ResponseWriter, r *http.Request) {
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
	if channel.IsArchived {
		response.Error(w, http.StatusBadRequest, "Channel is archived")
		return
	}

	membership := models.ChannelMember{
		ChannelID:            channel.ID,
		TeamMemberID:         caller.Member.ID,
		Role:                 models.ChannelRoleMember,
		JoinedAt:             cs.Now(),
		NotificationsEnabled: true,
	}
	err = cs.Store.AddMembership(ctx, &membership)
	if errors.Is(err, store.ErrAlreadyMember) {
		response.Error(w, http.StatusBadRequest, "You are already a member of this channel")
		return
	}
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to join channel", err)
		return
	}

	cs.Log.WithContext(ctx).Info("Team member joined channel", "channel_id", channel.ID, "team_member_id", caller.Member.ID)
	response.JSON(w, http.StatusCreated, membership)
}

// LeaveChannel removes the caller's own membership. The last admin of a
// non-archived channel cannot leave.
func (cs *ChannelService) LeaveChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	channelID := mux.Vars(r)["id"]
	if _, err := cs.Store.GetChannel(ctx, channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Channel not found")
			return
		}
		access.Fail(w, r, cs.Log, "Failed to get channel", err)
		return
	}

	err := cs.Store.RemoveMembership(ctx, channelID, caller.Member.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusBadRequest, "You are not a member of this channel")
		return
	case errors.Is(err, store.ErrLastAdmin):
		response.Error(w, http.StatusBadRequest, "You are the last admin of this channel; promote another member or archive the channel first")
		return
	case err != nil:
		access.Fail(w, r, cs.Log, "Failed to leave channel", err)
		return
	}

	cs.Log.WithContext(ctx).Info("Team member left channel", "channel_id", channelID, "team_member_id", caller.Member.ID)
	response.JSON(w, http.StatusOK, map[string]string{"message": "Left channel"})
}

// UpdateMemberRole promotes or demotes a member. Channel admins only.
func (cs *ChannelService) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	channel, err := access.Channel(ctx, cs.Store, caller, vars["id"])
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to get channel", err)
		return
	}
	mine, err := access.Membership(ctx, cs.Store, caller, channel.ID)
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to check channel membership", err)
		return
	}
	if !mine.IsAdmin() {
		response.Error(w, http.StatusForbidden, "Only channel admins can change member roles")
		return
	}

	var req updateRoleRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role != models.ChannelRoleAdmin && req.Role != models.ChannelRoleMember {
		response.Error(w, http.StatusBadRequest, "Role must be admin or member")
		return
	}

	updated, err := cs.Store.SetMemberRole(ctx, channel.ID, vars["memberId"], req.Role)
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Member not found in this channel")
		return
	case errors.Is(err, store.ErrLastAdmin):
		response.Error(w, http.StatusBadRequest, "A channel must keep at least one admin")
		return
	case err != nil:
		access.Fail(w, r, cs.Log, "Failed to change member role", err)
		return
	}

	cs.Log.WithContext(ctx).Audit("Channel member role changed",
		"channel_id", channel.ID, "team_member_id", updated.TeamMemberID, "role", updated.Role, "changed_by", caller.Member.ID)
	response.JSON(w, http.StatusOK, updated)
}

// MarkRead moves the caller's read cursor to now
func (cs *ChannelService) MarkRead(w http.ResponseWriter, r *http.Request) {
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
	if _, err := access.Membership(ctx, cs.Store, caller, channel.ID); err != nil {
		access.Fail(w, r, cs.Log, "Failed to check channel membership", err)
		return
	}

	now := cs.Now()
	if err := cs.Store.MarkRead(ctx, channel.ID, caller.Member.ID, now); err != nil {
		access.Fail(w, r, cs.Log, "Failed to mark channel read", err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"last_read_at": now})
}

// GetNotifications reports whether the caller gets push notifications for the channel
func (cs *ChannelService) GetNotifications(w http.ResponseWriter, r *http.Request) {
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
	membership, err := access.Membership(ctx, cs.Store, caller, channel.ID)
	if err != nil {
		access.Fail(w, r, cs.Log, "Failed to check channel membership", err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"enabled": membership.NotificationsEnabled})
}

// SetNotifications turns push notifications for the channel on or off
func (cs *ChannelService) SetNotifications(w http.ResponseWriter, r *http.Request) {
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
	if _, err := access.Membership(ctx, cs.Store, caller, channel.ID); err != nil {
		access.Fail(w, r, cs.Log, "Failed to check channel membership", err)
		return
	}

	var req notificationsRequest
	if err := response.Decode(r, &req); err != nil || req.Enabled == nil {
		response.Error(w, http.StatusBadRequest, "enabled must be true or false")
		return
	}
	if err := cs.Store.SetNotifications(ctx, channel.ID, caller.Member.ID, *req.Enabled); err != nil {
		access.Fail(w, r, cs.Log, "Failed to update notification settings", err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}
