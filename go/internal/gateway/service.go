package gateway

import (
	"context"
	"net/http"

	"connectrpc.com/grpcreflect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Service is the room gateway: WebSocket play, REST reads and admin RPC.
type Service struct {
	connectionManager *ConnectionManager
	registry          *game.Registry
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	admin             *AdminServer
}

// NewService wires the router into cm. The registry's sessions must use cm as
// their roster, broadcaster and chat log.
func NewService(cm *ConnectionManager, registry *game.Registry) *Service {
	cm.SetHandler(NewRouter(registry, cm))
	state := NewStateHandler(registry, cm)
	return &Service{
		connectionManager: cm,
		registry:          registry,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      state,
		admin:             NewAdminServer(state),
	}
}

// Start runs the broadcaster and the session save loop until ctx is done.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting room gateway service")
	go s.connectionManager.Start(ctx)
	s.registry.Run(ctx)
	log.Info().Msg("room gateway service stopped")
}

// Routes returns the HTTP routes without CORS or h2c.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	r.Get("/ws", s.wsHandler.HandleRoomConnection)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)
	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", s.stateHandler.HandleListRooms)
		r.Get("/{roomID}/state", s.stateHandler.HandleGetRoomState)
	})

	for path, h := range s.admin.Handlers() {
		r.Handle(path, h)
	}
	reflector := grpcreflect.NewStaticReflector(AdminServiceName)
	path, h := grpcreflect.NewHandlerV1(reflector)
	r.Handle(path+"*", h)
	path, h = grpcreflect.NewHandlerV1Alpha(reflector)
	r.Handle(path+"*", h)
	return r
}

// Handler returns the full HTTP handler: CORS around the routes, served
// over h2c so gRPC clients can reach the admin RPC without TLS.
func (s *Service) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return h2c.NewHandler(c.Handler(s.Routes()), &http2.Server{})
}
