package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/config"
	"github.com/nikhil/chapterhub/internal/database"
	"github.com/nikhil/chapterhub/internal/events"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/mailer"
	"github.com/nikhil/chapterhub/internal/models"
	"github.com/nikhil/chapterhub/internal/push"
	"github.com/nikhil/chapterhub/internal/ratelimit"
	"github.com/nikhil/chapterhub/internal/realtime"
	"github.com/nikhil/chapterhub/internal/routes"
	"github.com/nikhil/chapterhub/internal/service/broadcast"
	"github.com/nikhil/chapterhub/internal/storage"
	"github.com/nikhil/chapterhub/internal/store"
	"github.com/nikhil/chapterhub/internal/worker"
)

const testSecret = "test-secret"

type recordingPush struct {
	mu   sync.Mutex
	sent []models.PushSubscription
}

func (p *recordingPush) Send(_ context.Context, sub models.PushSubscription, _ []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sub)
	return http.StatusCreated, nil
}

func (p *recordingPush) members() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, s := range p.sent {
		out = append(out, s.TeamMemberID)
	}
	return out
}

type recordingMail struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (m *recordingMail) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *recordingMail) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, e := range m.sent {
		out = append(out, e.To)
	}
	return out
}

type fakePresigner struct{}

func (fakePresigner) PresignUpload(_ context.Context, key, _ string) (storage.Signed, error) {
	return storage.Signed{URL: "https://bucket.test/" + key, Method: http.MethodPut, Key: key}, nil
}

func (fakePresigner) PresignDownload(_ context.Context, key string) (storage.Signed, error) {
	return storage.Signed{URL: "https://bucket.test/" + key, Method: http.MethodGet, Key: key}, nil
}

type user struct {
	teamMember models.TeamMember
	token      string
}

type testEnv struct {
	t      *testing.T
	router *mux.Router
	store  *store.Store
	jobs   *worker.Group
	push   *recordingPush
	mail   *recordingMail

	national, state, county, otherState models.Chapter

	superAdmin, stateAdmin, alice, bob, outsider user
}

type envOption func(*routes.Deps)

func withLimiter(l ratelimit.Limiter) envOption {
	return func(d *routes.Deps) { d.Limiter = l }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "chapterhub.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = database.Migrate(db)
	require.NoError(t, err)

	log := logger.Nop()
	env := &testEnv{
		t:     t,
		store: store.New(db),
		jobs:  worker.NewGroup(10*time.Second, log),
		push:  &recordingPush{},
		mail:  &recordingMail{},
	}

	hubCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	hub := realtime.NewHub(log)
	go hub.Run(hubCtx)

	cfg := &config.Config{
		Env: "test",
		Auth: config.AuthConf{
			JWTSecret:     testSecret,
			SessionCookie: "sb-access-token",
			ChapterCookie: "selected_chapter",
		},
		Push: config.PushConf{VAPIDPublicKey: "test-public-key"},
	}
	deps := routes.Deps{
		Config:  cfg,
		Log:     log,
		Store:   env.store,
		Limiter: ratelimit.NewMemory(1000, time.Minute),
		Hub:     hub,
		Mailer:  mailer.New(env.mail, 0, log),
		Jobs:    env.jobs,
		Storage: fakePresigner{},
		Broadcast: &broadcast.Broadcaster{
			Members: env.store,
			Hub:     hub,
			Events:  events.Nop{},
			Push:    push.NewDispatcher(env.store, env.push, log),
			Jobs:    env.jobs,
			Log:     log,
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.router = routes.RegisterAllRoutes(deps)

	env.national = env.chapter("United States", nil, models.LevelNational)
	env.state = env.chapter("Ohio", &env.national.ID, models.LevelState)
	env.county = env.chapter("Franklin County", &env.state.ID, models.LevelCounty)
	env.otherState = env.chapter("Texas", &env.national.ID, models.LevelState)

	env.superAdmin = env.user("Sam", "Super", nil, auth.RoleSuperAdmin)
	env.stateAdmin = env.user("Ada", "Admin", &env.state.ID, auth.RoleStateAdmin)
	env.alice = env.user("Alice", "Anders", &env.state.ID, auth.RoleTeamMember)
	env.bob = env.user("Bob", "Brown", &env.state.ID, auth.RoleTeamMember)
	env.outsider = env.user("Olga", "Other", &env.otherState.ID, auth.RoleTeamMember)
	return env
}

func (e *testEnv) chapter(name string, parent *string, level string) models.Chapter {
	e.t.Helper()
	c := models.Chapter{Name: name, ParentID: parent, Level: level, CreatedAt: time.Now().UnixMilli()}
	require.NoError(e.t, e.store.CreateChapter(context.Background(), &c))
	return c
}

func (e *testEnv) user(first, last string, chapterID *string, roles ...string) user {
	e.t.Helper()
	ctx := context.Background()
	now := time.Now().UnixMilli()

	m := models.Member{
		ChapterID:  chapterID,
		FirstName:  first,
		LastName:   last,
		Email:      fmt.Sprintf("%s.%s@example.org", first, last),
		EmailOptIn: true,
		CreatedAt:  now,
	}
	require.NoError(e.t, e.store.CreateMember(ctx, &m))

	tm := models.TeamMember{
		UserID:    uuid.NewString(),
		MemberID:  m.ID,
		ChapterID: chapterID,
		Roles:     models.Roles(roles),
		IsActive:  true,
		CreatedAt: now,
	}
	require.NoError(e.t, e.store.CreateTeamMember(ctx, &tm))
	return user{teamMember: tm, token: signToken(e.t, tm.UserID)}
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request as u; a non-empty chapter is sent as the selected chapter cookie
func (e *testEnv) do(u user, method, path string, body interface{}, chapter ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}
	if len(chapter) > 0 && chapter[0] != "" {
		req.AddCookie(&http.Cookie{Name: "selected_chapter", Value: chapter[0]})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// settle waits for background fan-out to finish
func (e *testEnv) settle() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(e.t, e.jobs.Wait(ctx))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

// createChannel creates a channel as the state admin
func (e *testEnv) createChannel(name string) models.Channel {
	e.t.Helper()
	rec := e.do(e.stateAdmin, http.MethodPost, "/channels", map[string]string{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var ch models.Channel
	decode(e.t, rec, &ch)
	return ch
}

func (e *testEnv) join(u user, channelID string) {
	e.t.Helper()
	rec := e.do(u, http.MethodPost, "/channels/"+channelID+"/members", nil)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) send(u user, channelID, content string) models.MessageBody {
	e.t.Helper()
	rec := e.do(u, http.MethodPost, "/channels/"+channelID+"/messages", map[string]string{"content": content})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var m models.MessageBody
	decode(e.t, rec, &m)
	return m
}
