// Package access holds the authorization checks shared by the HTTP services.
package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/middleware"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/scope"
	"github.com/nikhil/chapterhub/internal/store"
)

// Denial is a client-facing refusal carrying its HTTP status
type Denial struct {
	Status  int
	Message string
}

func (d *Denial) Error() string { return d.Message }

func Forbidden(msg string) *Denial  { return &Denial{Status: http.StatusForbidden, Message: msg} }
func BadRequest(msg string) *Denial { return &Denial{Status: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *Denial   { return &Denial{Status: http.StatusNotFound, Message: msg} }

// Caller is the authenticated team member and the scope of the request
type Caller struct {
	Member models.TeamMember
	Scope  scope.Scope
}

// Roles returns the caller's role strings
func (c Caller) Roles() []string {
	return []string(c.Member.Roles)
}

// FromRequest reads the caller set by the auth and scope middleware
func FromRequest(r *http.Request) (Caller, bool) {
	m, ok := middleware.CurrentMember(r.Context())
	if !ok {
		return Caller{}, false
	}
	sc, ok := middleware.CurrentScope(r.Context())
	if !ok {
		return Caller{}, false
	}
	return Caller{Member: m, Scope: sc}, true
}

// Channel loads a channel the caller's scope covers
func Channel(ctx context.Context, st *store.Store, c Caller, id string) (models.Channel, error) {
	ch, err := st.GetChannel(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ch, NotFound("Channel not found")
	}
	if err != nil {
		return ch, err
	}
	if !c.Scope.Includes(ch.ChapterID) {
		return ch, Forbidden("You don't have access to this channel's chapter")
	}
	return ch, nil
}

// Membership loads the caller's membership of channelID, refusing non-members
func Membership(ctx context.Context, st *store.Store, c Caller, channelID string) (models.ChannelMember, error) {
	m, err := st.GetMembership(ctx, channelID, c.Member.ID)
	if errors.Is(err, store.ErrNotFound) {
		return m, Forbidden("You are not a member of this channel")
	}
	return m, err
}

// Fail writes err: denials with their status, anything else as a logged 500
func Fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, msg string, err error) {
	var d *Denial
	if errors.As(err, &d) {
		response.Error(w, d.Status, d.Message)
		return
	}
	log.WithContext(r.Context()).Error(msg, "error", err)
	response.Error(w, http.StatusInternalServerError, "Internal server error")
}
