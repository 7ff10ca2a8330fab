package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-docroom/internal/config"
	"github.com/npezzotti/go-docroom/internal/database"
	"github.com/npezzotti/go-docroom/internal/server"
	"github.com/teris-io/shortid"
)

type DocRoomApp struct {
	log             *log.Logger
	db              database.RoomRepository
	srv             *http.Server
	router          *server.Router
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

// NewDocRoomApp mounts the HTTP API and the websocket endpoint on mux and
// wraps it with CORS, panic recovery and access logging.
func NewDocRoomApp(mux *http.ServeMux, logger *log.Logger, rt *server.Router, db database.RoomRepository, cfg *config.Config) *DocRoomApp {
	s := &DocRoomApp{
		log:             logger,
		db:              db,
		router:          rt,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = config.DefaultSocketPath
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/signup", s.signup)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/auth/status", s.authMiddleware(s.authStatus))
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms/lobby", s.authMiddleware(s.getLobbyRooms))
	mux.HandleFunc("GET /api/rooms/public", s.authMiddleware(s.getPublicRooms))
	mux.HandleFunc("GET /api/rooms/search", s.authMiddleware(s.searchRooms))
	mux.HandleFunc("GET /api/rooms/{id}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("PUT /api/rooms/{id}/content", s.authMiddleware(s.saveRoomContent))
	mux.HandleFunc("DELETE /api/rooms/{id}", s.authMiddleware(s.deleteRoom))
	mux.HandleFunc("GET "+socketPath, s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)
	h = handlers.CombinedLoggingHandler(logger.Writer(), h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *DocRoomApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *DocRoomApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *DocRoomApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
