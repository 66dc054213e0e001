package notifyService

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/mailer"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/store"
	"github.com/nikhil/chapterhub/internal/worker"
)

// NotifyService emails templated announcements to opted-in members
type NotifyService struct {
	Store  *store.Store
	Mailer *mailer.Mailer
	Jobs   *worker.Group
	Log    *logger.Logger
}

type notifyRequest struct {
	ChapterID string                 `json:"chapter_id"`
	Data      map[string]interface{} `json:"data"`
}

func NewNotifyService(st *store.Store, m *mailer.Mailer, jobs *worker.Group, log *logger.Logger) *NotifyService {
	return &NotifyService{Store: st, Mailer: m, Jobs: jobs, Log: log.Named("notify-service")}
}

// Send accepts a batch for kind and sends it in the background.
// Responds 202 with the number of recipients.
func (ns *NotifyService) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !auth.IsAdmin(caller.Roles()) || !auth.CanAccess(caller.Roles(), auth.SectionEmail) {
		response.Error(w, http.StatusForbidden, "You don't have permission to send email")
		return
	}

	kind := mux.Vars(r)["kind"]
	var req notifyRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := mailer.Validate(kind, req.Data); err != nil {
		var missing *mailer.MissingFieldError
		if errors.Is(err, mailer.ErrUnknownKind) || errors.As(err, &missing) {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		access.Fail(w, r, ns.Log, "Failed to validate notification", err)
		return
	}

	recipients, err := ns.recipients(ctx, caller, req.ChapterID)
	if err != nil {
		access.Fail(w, r, ns.Log, "Failed to load email recipients", err)
		return
	}

	batch := make([]mailer.Recipient, 0, len(recipients))
	for _, m := range recipients {
		batch = append(batch, mailer.Recipient{Email: m.Email, FirstName: m.FirstName})
	}
	ns.Log.WithContext(ctx).Audit("Email batch queued", "kind", kind, "recipients", len(batch), "team_member_id", caller.Member.ID)

	if len(batch) > 0 {
		ns.Jobs.Go(ctx, "email-"+kind, func(ctx context.Context) {
			if _, err := ns.Mailer.SendBatch(ctx, kind, req.Data, batch); err != nil {
				ns.Log.WithContext(ctx).Error("Email batch aborted", "kind", kind, "error", err)
			}
		})
	}

	response.JSON(w, http.StatusAccepted, map[string]interface{}{"kind": kind, "recipients": len(batch)})
}

// recipients returns opted-in members of chapterID's subtree, or of the whole scope when empty
func (ns *NotifyService) recipients(ctx context.Context, caller access.Caller, chapterID string) ([]models.Member, error) {
	if chapterID != "" {
		if !caller.Scope.Includes(chapterID) {
			return nil, access.Forbidden("You don't have access to this chapter")
		}
		ids, err := ns.Store.Descendants(ctx, chapterID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, access.NotFound("Chapter not found")
		}
		return ns.Store.ListEmailRecipients(ctx, ids, false)
	}
	if caller.Scope.Empty() {
		return nil, nil
	}
	return ns.Store.ListEmailRecipients(ctx, caller.Scope.ChapterIDs, caller.Scope.Unrestricted)
}
