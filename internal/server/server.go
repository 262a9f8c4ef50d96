package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/notekeeper/apiserver/config"
	"github.com/notekeeper/apiserver/internal/db"
	"github.com/notekeeper/apiserver/internal/events"
	"github.com/notekeeper/apiserver/internal/handlers"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Bus
}

// Dependencies are the collaborators the router dispatches to.
type Dependencies struct {
	Repositories services.Repositories
	Transactor   services.Transactor
	Publisher    services.Publisher
	Sessions     *scs.SessionManager
	Health       handlers.Pinger
	JWTSecret    string
	TokenTTL     time.Duration
}

// New connects to the database and the event broker and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	bus, err := events.Open(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	sessions := scs.New()
	// No cleanup goroutine; `notekeeper sessions prune` removes expired rows.
	sessions.Store = postgresstore.NewWithCleanupInterval(dbConn, 0)
	sessions.Lifetime = cfg.Session.Lifetime
	sessions.Cookie.Name = "notekeeper_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Secure = cfg.Session.CookieSecure
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	router := NewRouter(Dependencies{
		Repositories: services.FromStore(store.New(dbConn)),
		Transactor:   services.NewSQLTransactor(dbConn),
		Publisher:    bus,
		Sessions:     sessions,
		Health:       dbConn,
		JWTSecret:    jwtSecret,
		TokenTTL:     cfg.Auth.TokenTTL,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     bus,
	}, nil
}

// NewRouter wires services and handlers onto a chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	categoryService := services.NewCategoryService(deps.Repositories, deps.Transactor, deps.Publisher)
	noteService := services.NewNoteService(deps.Repositories, deps.Publisher)
	taskService := services.NewTaskService(deps.Repositories, deps.Publisher)
	userService := services.NewUserService(deps.Repositories, deps.Transactor, deps.Publisher)

	flash := handlers.NewFlasher(deps.Sessions)
	authHandler := handlers.NewAuthHandler(userService, deps.JWTSecret, deps.TokenTTL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		deps.Sessions.LoadAndSave,
	)
	router.Get("/healthz", handlers.Healthz(deps.Health))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Group(func(r chi.Router) {
		r.Use(authHandler.RequireAuth)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/note", http.StatusFound)
		})
		r.Route("/note", func(r chi.Router) {
			handlers.EntryRouter(r, handlers.NewNoteHandler(noteService, categoryService, flash))
		})
		r.Route("/task", func(r chi.Router) {
			handlers.EntryRouter(r, handlers.NewTaskHandler(taskService, categoryService, flash))
		})
		r.Route("/category", func(r chi.Router) {
			handlers.CategoryRouter(r, handlers.NewCategoryHandler(categoryService, flash))
		})
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, handlers.NewUserHandler(userService, flash))
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the broker and database connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		err = errors.Join(err, s.events.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}
