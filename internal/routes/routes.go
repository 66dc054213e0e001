package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chapterhub/internal/config"
	"github.com/nikhil/chapterhub/internal/handlers"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/mailer"
	"github.com/nikhil/chapterhub/internal/middleware"
	"github.com/nikhil/chapterhub/internal/ratelimit"
	"github.com/nikhil/chapterhub/internal/realtime"
	"github.com/nikhil/chapterhub/internal/response"
	channelRoutes "github.com/nikhil/chapterhub/internal/routes/channels"
	chapterRoutes "github.com/nikhil/chapterhub/internal/routes/chapters"
	fileRoutes "github.com/nikhil/chapterhub/internal/routes/files"
	notifyRoutes "github.com/nikhil/chapterhub/internal/routes/notify"
	pushRoutes "github.com/nikhil/chapterhub/internal/routes/push"
	userRoutes "github.com/nikhil/chapterhub/internal/routes/user"
	"github.com/nikhil/chapterhub/internal/service/broadcast"
	channelService "github.com/nikhil/chapterhub/internal/service/channels"
	chapterService "github.com/nikhil/chapterhub/internal/service/chapters"
	fileService "github.com/nikhil/chapterhub/internal/service/files"
	messageService "github.com/nikhil/chapterhub/internal/service/messages"
	notifyService "github.com/nikhil/chapterhub/internal/service/notify"
	pushService "github.com/nikhil/chapterhub/internal/service/push"
	profileService "github.com/nikhil/chapterhub/internal/service/users"
	"github.com/nikhil/chapterhub/internal/store"
	"github.com/nikhil/chapterhub/internal/worker"
)

// Deps carries everything the route modules are built from
type Deps struct {
	Config    *config.Config
	Log       *logger.Logger
	Store     *store.Store
	Limiter   ratelimit.Limiter
	Hub       *realtime.Hub
	Broadcast *broadcast.Broadcaster
	Mailer    *mailer.Mailer
	Jobs      *worker.Group
	// Storage is nil when no bucket is configured
	Storage fileService.Presigner
}

// Register all routes dynamically
func RegisterAllRoutes(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging(d.Log))

	authn := &middleware.Authenticator{
		Secret:   []byte(d.Config.Auth.JWTSecret),
		Audience: d.Config.Auth.JWTAudience,
		Cookie:   d.Config.Auth.SessionCookie,
		Members:  d.Store,
		Log:      d.Log.Named("auth"),
	}
	scopes := &middleware.ScopeResolver{
		Tree:   d.Store,
		Cookie: d.Config.Auth.ChapterCookie,
		Log:    d.Log.Named("scope"),
	}
	protected := []mux.MiddlewareFunc{
		authn.Middleware,
		scopes.Middleware,
		middleware.RateLimit(d.Limiter, d.Log.Named("ratelimit")),
		middleware.ResponseWrapperMiddleware,
	}

	channels := channelService.NewChannelService(d.Store, d.Log, d.Broadcast)
	messages := messageService.NewMessageService(d.Store, d.Log, d.Broadcast)
	chapters := chapterService.NewChapterService(d.Store, d.Log)
	profiles := profileService.NewProfileService(d.Store, d.Log)
	subscriptions := pushService.NewSubscriptionService(d.Store, d.Log, d.Config.Push.VAPIDPublicKey)
	notify := notifyService.NewNotifyService(d.Store, d.Mailer, d.Jobs, d.Log)
	files := fileService.NewFileService(d.Storage, d.Log)
	ws := handlers.NewWebSocketHandler(d.Hub, d.Config.HTTP.AllowedOrigins, d.Log)

	// List of all route registration functions
	routeModules := []func(*mux.Router){
		func(r *mux.Router) { channelRoutes.ChannelRoutes(r, protected, channels, messages) },
		func(r *mux.Router) { chapterRoutes.ChapterRoutes(r, protected, chapters) },
		func(r *mux.Router) { userRoutes.UserProfileRoutes(r, protected, profiles) },
		func(r *mux.Router) { pushRoutes.PushRoutes(r, protected, subscriptions) },
		func(r *mux.Router) { notifyRoutes.NotifyRoutes(r, protected, notify) },
		func(r *mux.Router) { fileRoutes.FileRoutes(r, protected, files) },
		func(r *mux.Router) {
			// WebSocket endpoint, the browser cannot set headers so the token may come as a query parameter
			r.Handle("/ws", authn.WebSocketMiddleware(http.HandlerFunc(ws.HandleWebSocket))).Methods(http.MethodGet)
		},
	}

	for _, register := range routeModules {
		register(router)
	}

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return router
}
