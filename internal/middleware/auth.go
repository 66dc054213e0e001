package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/response"
	"github.com/nikhil/chapterhub/internal/scope"
	"github.com/nikhil/chapterhub/internal/store"
)

type ContextKey string

const (
	MemberContextKey ContextKey = "currentMember"
	ScopeContextKey  ContextKey = "chapterScope"
)

// MemberFinder resolves an identity-provider subject to an active team member
type MemberFinder interface {
	GetActiveTeamMemberByUserID(ctx context.Context, userID string) (models.TeamMember, error)
}

// Authenticator verifies session tokens issued by the identity provider
type Authenticator struct {
	Secret   []byte
	Audience string
	Cookie   string
	Members  MemberFinder
	Log      *logger.Logger
}

// Middleware rejects requests without a valid session and a matching active team member.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return a.handler(next, false)
}

// WebSocketMiddleware is Middleware that also accepts the token as an access_token query parameter
func (a *Authenticator) WebSocketMiddleware(next http.Handler) http.Handler {
	return a.handler(next, true)
}

func (a *Authenticator) handler(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := a.token(r, allowQuery)
		if tokenStr == "" {
			response.Error(w, http.StatusUnauthorized, "Missing auth token")
			return
		}

		userID, err := a.subject(tokenStr)
		if err != nil {
			a.Log.WithContext(r.Context()).Debug("Rejected session token", "error", err)
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		member, err := a.Members.GetActiveTeamMemberByUserID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusUnauthorized, "No active team member for this session")
				return
			}
			a.Log.WithContext(r.Context()).Error("Failed to load team member", "error", err)
			response.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), MemberContextKey, member)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) token(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(a.Cookie); err == nil && c.Value != "" {
		return c.Value
	}
	if allowQuery {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func (a *Authenticator) subject(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.Audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// CurrentMember returns the team member stored by the auth middleware
func CurrentMember(ctx context.Context) (models.TeamMember, bool) {
	m, ok := ctx.Value(MemberContextKey).(models.TeamMember)
	return m, ok
}

// CurrentScope returns the chapter scope stored by the scope middleware
func CurrentScope(ctx context.Context) (scope.Scope, bool) {
	s, ok := ctx.Value(ScopeContextKey).(scope.Scope)
	return s, ok
}

// ScopeResolver attaches the caller's chapter scope to the request
type ScopeResolver struct {
	Tree   scope.ChapterTree
	Cookie string
	Log    *logger.Logger
}

// Middleware must run after the auth middleware.
func (s *ScopeResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := CurrentMember(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var selected string
		if c, err := r.Cookie(s.Cookie); err == nil {
			selected = strings.TrimSpace(c.Value)
		}

		sc, err := scope.Resolve(r.Context(), s.Tree, member, selected)
		if err != nil {
			if errors.Is(err, scope.ErrNoJurisdiction) {
				s.Log.WithContext(r.Context()).WithMember(member.ID).Warn("Chapter selection rejected",
					"selected_chapter", selected)
				response.Error(w, http.StatusForbidden, err.Error())
				return
			}
			s.Log.WithContext(r.Context()).Error("Failed to resolve chapter scope", "error", err)
			response.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), ScopeContextKey, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ResponseWrapperMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
