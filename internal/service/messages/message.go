package messageService

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/events"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/push"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/service/broadcast"
	"github.com/nikhil/chapterhub/internal/store"
)

const (
	defaultPageSize  = 50
	maxPageSize      = 100
	maxContentLength = 4000
	previewLength    = 120
)

type MessageService struct {
	Store     *store.Store
	Log       *logger.Logger
	Broadcast *broadcast.Broadcaster
	Now       func() int64
}

func NewMessageService(st *store.Store, log *logger.Logger, b *broadcast.Broadcaster) *MessageService {
	return &MessageService{
		Store:     st,
		Log:       log.Named("message-service"),
		Broadcast: b,
		Now:       func() int64 { return time.Now().UnixMilli() },
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

// MessagePage is one page of a channel's history, newest first
type MessagePage struct {
	Messages   []models.MessageBody `json:"messages"`
	NextCursor *string              `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

func validContent(content string) (string, *access.Denial) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", access.BadRequest("Message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", access.BadRequest("Message content must be at most 4000 characters")
	}
	return content, nil
}

func pageSize(raw string) (int, bool) {
	if raw == "" {
		return defaultPageSize, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > maxPageSize {
		n = maxPageSize
	}
	return n, true
}

// ListMessages returns messages strictly older than the cursor message, newest first
func (ms *MessageService) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	channel, err := access.Channel(ctx, ms.Store, caller, mux.Vars(r)["id"])
	if err != nil {
		access.Fail(w, r, ms.Log, "Failed to get channel", err)
		return
	}
	if _, err := access.Membership(ctx, ms.Store, caller, channel.ID); err != nil {
		access.Fail(w, r, ms.Log, "Failed to check channel membership", err)
		return
	}

	q := r.URL.Query()
	limit, ok := pageSize(q.Get("limit"))
	if !ok {
		response.Error(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	var before *int64
	if cursor := q.Get("cursor"); cursor != "" {
		m, err := ms.Store.GetMessage(ctx, cursor)
		if errors.Is(err, store.ErrNotFound) || (err == nil && m.ChannelID != channel.ID) {
			response.Error(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		if err != nil {
			access.Fail(w, r, ms.Log, "Failed to resolve cursor", err)
			return
		}
		before = &m.CreatedAt
	}

	messages, err := ms.Store.ListMessages(ctx, channel.ID, before, limit+1)
	if err != nil {
		access.Fail(w, r, ms.Log, "Failed to list messages", err)
		return
	}

	page := MessagePage{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		page.HasMore = true
		last := page.Messages[limit-1].ID
		page.NextCursor = &last
	}
	response.JSON(w, http.StatusOK, page)
}

// SendMessage posts a message to a channel the caller belongs to.
// Members with notifications enabled get a push, the sender does not.
func (ms *MessageService) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	channel, err := access.Channel(ctx, ms.Store, caller, mux.Vars(r)["id"])
	if err != nil {
		access.Fail(w, r, ms.Log, "Failed to get channel", err)
		return
	}
	if _, err := access.Membership(ctx, ms.Store, caller, channel.ID); err != nil {
		access.Fail(w, r, ms.Log, "Failed to check channel membership", err)
		return
	}
	if channel.IsArchived {
		response.Error(w, http.StatusBadRequest, "Channel is archived")
		return
	}

	var req contentRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content, denial := validContent(req.Content)
	if denial != nil {
		access.Fail(w, r, ms.Log, "", denial)
		return
	}

	now := ms.Now()
	msg := models.MessageBody{Message: models.Message{
		ChannelID: channel.ID,
		SenderID:  caller.Member.ID,
		Content:   &content,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	if err := ms.Store.CreateMessage(ctx, &msg.Message); err != nil {
		access.Fail(w, r, ms.Log, "Failed to insert message", err)
		return
	}
	msg.FirstName, msg.LastName = ms.senderName(ctx, caller.Member)

	ms.Broadcast.Publish(ctx, broadcast.Activity{
		Type:      events.MessageCreated,
		ChannelID: channel.ID,
		ActorID:   caller.Member.ID,
		At:        now,
		Payload:   msg,
		Notification: &push.Notification{
			Title:     channel.Name,
			Body:      strings.TrimSpace(msg.FirstName+" "+msg.LastName) + ": " + push.Preview(content, previewLength),
			URL:       "/messaging/" + channel.ID,
			Tag:       "channel-" + channel.ID,
			ChannelID: channel.ID,
			MessageID: msg.ID,
		},
	})

	response.JSON(w, http.StatusCreated, msg)
}

// senderName looks up the profile names of a team member; failures leave them blank
func (ms *MessageService) senderName(ctx context.Context, tm models.TeamMember) (string, string) {
	member, err := ms.Store.GetMember(ctx, tm.MemberID)
	if err != nil {
		ms.Log.WithContext(ctx).Warn("Failed to load sender profile", "team_member_id", tm.ID, "error", err)
		return "", ""
	}
	return member.FirstName, member.LastName
}

// ownMessage loads a message for the sender to change: 404 unknown, 403 not
// the sender, 400 already deleted
func (ms *MessageService) ownMessage(ctx context.Context, caller access.Caller, id string) (models.Message, models.Channel, error) {
	msg, err := ms.Store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return msg, models.Channel{}, access.NotFound("Message not found")
	}
	if err != nil {
		return msg, models.Channel{}, err
	}
	channel, err := access.Channel(ctx, ms.Store, caller, msg.ChannelID)
	if err != nil {
		return msg, channel, err
	}
	if msg.SenderID != caller.Member.ID {
		return msg, channel, access.Forbidden("You can only change your own messages")
	}
	if msg.IsDeleted {
		return msg, channel, access.BadRequest("Message has been deleted")
	}
	return msg, channel, nil
}

// EditMessage replaces the content of the caller's own message
func (ms *MessageService) EditMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	msg, channel, err := ms.ownMessage(ctx, caller, mux.Vars(r)["id"])
	if err != nil {
		access.Fail(w, r, ms.Log, "Failed to load message", err)
		return
	}
	if channel.IsArchived {
		response.Error(w, http.StatusBadRequest, "Channel is archived")
		return
	}

	var req contentRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content, denial := validContent(req.Content)
	if denial != nil {
		access.Fail(w, r, ms.Log, "", denial)
		return
	}

	now := ms.Now()
	if err := ms.Store.EditMessage(ctx, msg.ID, content, now); err != nil {
		access.Fail(w, r, ms.Log, "Failed to edit message", err)
		return
	}
	msg.Content = &content
	msg.IsEdited = true
	msg.UpdatedAt = now

	body := models.MessageBody{Message: msg}
	body.FirstName, body.LastName = ms.senderName(ctx, caller.Member)
	ms.Broadcast.Publish(ctx, broadcast.Activity{
		Type:      events.MessageUpdated,
		ChannelID: msg.ChannelID,
		ActorID:   caller.Member.ID,
		At:        now,
		Payload:   body,
	})

	response.JSON(w, http.StatusOK, body)
}

// DeleteMessage soft-deletes the caller's own message
func (ms *MessageService) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	msg, _, err := ms.ownMessage(ctx, caller, mux.Vars(r)["id"])
	if err != nil {
		access.Fail(w, r, ms.Log, "Failed to load message", err)
		return
	}

	now := ms.Now()
	if err := ms.Store.SoftDeleteMessage(ctx, msg.ID, now); err != nil {
		access.Fail(w, r, ms.Log, "Failed to delete message", err)
		return
	}
	msg.IsDeleted = true
	msg.UpdatedAt = now
	msg.Redact()

	ms.Log.WithContext(ctx).Info("Message deleted", "message_id", msg.ID, "channel_id", msg.ChannelID, "team_member_id", caller.Member.ID)
	ms.Broadcast.Publish(ctx, broadcast.Activity{
		Type:      events.MessageDeleted,
		ChannelID: msg.ChannelID,
		ActorID:   caller.Member.ID,
		At:        now,
		Payload:   msg,
	})

	response.JSON(w, http.StatusOK, msg)
}
