package handlers

import (
	"net/http"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/scope"
	"github.com/nikhil/chapterhub/internal/service/access"
)

// Session describes the authenticated caller
type Session struct {
	TeamMember  models.TeamMember `json:"team_member"`
	HighestRole string            `json:"highest_role"`
	Sections    []string          `json:"sections"`
	Scope       scope.Scope       `json:"scope"`
}

// Me returns the caller's team member, role summary and chapter scope
func Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := access.FromRequest(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	roles := caller.Roles()
	response.JSON(w, http.StatusOK, Session{
		TeamMember:  caller.Member,
		HighestRole: auth.HighestRole(roles),
		Sections:    auth.Sections(roles),
		Scope:       caller.Scope,
	})
}
