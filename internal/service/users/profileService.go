package profileService

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/middleware"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/service/access"
	"github.com/nikhil/chapterhub/internal/store"
)

const maxNameLength = 100

type ProfileService struct {
	Store *store.Store
	Log   *logger.Logger
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func NewProfileService(st *store.Store, log *logger.Logger) *ProfileService {
	return &ProfileService{Store: st, Log: log.Named("profile-service")}
}

func (profile *ProfileService) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.CurrentMember(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	m, err := profile.Store.GetMember(r.Context(), member.MemberID)
	if err != nil {
		access.Fail(w, r, profile.Log, "Failed to load member profile", err)
		return
	}
	response.JSON(w, http.StatusOK, m)
}

func (profile *ProfileService) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.CurrentMember(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateProfileRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" || utf8.RuneCountInString(first) > maxNameLength || utf8.RuneCountInString(last) > maxNameLength {
		response.Error(w, http.StatusBadRequest, "First name is required and names must be at most 100 characters")
		return
	}

	if err := profile.Store.UpdateMemberName(r.Context(), member.MemberID, first, last); err != nil {
		access.Fail(w, r, profile.Log, "Failed to update member profile", err)
		return
	}
	m, err := profile.Store.GetMember(r.Context(), member.MemberID)
	if err != nil {
		access.Fail(w, r, profile.Log, "Failed to load member profile", err)
		return
	}
	response.JSON(w, http.StatusOK, m)
}
