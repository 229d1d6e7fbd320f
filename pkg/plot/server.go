package plot

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/gorilla/mux"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/market"
	"github.com/raykavin/tradesim/pkg/metric"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/raykavin/tradesim/pkg/strategy"
)

// Static assets embedded in the binary
var (
	//go:embed assets
	staticFiles embed.FS
)

const DefaultPort = 8080

// Server serves the dashboard, the session API and the live tick stream
type Server struct {
	sync.Mutex
	port          int
	debug         bool
	log           logger.Logger
	manager       *simulation.Manager
	storage       core.Storage
	notifier      core.Notifier
	market        *market.Handler
	catalog       *strategy.Catalog
	metrics       *metric.Collector
	launcher      *simulation.Launcher
	renderer      *Renderer
	frameInterval time.Duration
	animators     map[string]*Animator
	websocket     *WebSocketManager
	scriptContent string
	indexHTML     *template.Template
	router        *mux.Router
	httpServer    *http.Server
	startedAt     time.Time
}

// Option defines a function type for configuring a Server instance
type Option func(*Server)

// WithPort sets the HTTP server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDebug disables minification of the dashboard script
func WithDebug() Option {
	return func(s *Server) {
		s.debug = true
	}
}

// WithStorage persists trades and the selected strategy
func WithStorage(storage core.Storage) Option {
	return func(s *Server) {
		s.storage = storage
	}
}

// WithNotifier receives the trades of every session created by the server
func WithNotifier(notifier core.Notifier) Option {
	return func(s *Server) {
		s.notifier = notifier
	}
}

// WithMarketHandler mounts the price functions under /functions
func WithMarketHandler(handler *market.Handler) Option {
	return func(s *Server) {
		s.market = handler
	}
}

// WithCatalog replaces the embedded strategy catalog
func WithCatalog(catalog *strategy.Catalog) Option {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithMetrics exports prometheus series on /metrics
func WithMetrics(metrics *metric.Collector) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithLauncher sets how sessions are created. Without one the server seeds
// sessions from generated candles.
func WithLauncher(launcher *simulation.Launcher) Option {
	return func(s *Server) {
		s.launcher = launcher
	}
}

// WithRenderer sets the chart renderer and the animation frame interval
func WithRenderer(renderer *Renderer, frameInterval time.Duration) Option {
	return func(s *Server) {
		s.renderer = renderer
		s.frameInterval = frameInterval
	}
}

// NewServer creates a server over manager with the provided options
func NewServer(log logger.Logger, manager *simulation.Manager, options ...Option) (*Server, error) {
	s := &Server{
		port:          DefaultPort,
		log:           log,
		manager:       manager,
		renderer:      NewRenderer(),
		frameInterval: DefaultFrameInterval,
		animators:     make(map[string]*Animator),
		startedAt:     time.Now(),
	}

	for _, option := range options {
		option(s)
	}

	if s.catalog == nil && s.launcher != nil {
		s.catalog = s.launcher.Catalog()
	}

	if s.catalog == nil {
		catalog, err := strategy.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load strategy catalog: %w", err)
		}
		s.catalog = catalog
	}

	if s.launcher == nil {
		s.launcher = simulation.NewLauncher(log, manager, s.catalog,
			simulation.WithSelectionStore(s.storage),
			simulation.WithSessionOptions(s.sessionOptions()...),
		)
	}

	var err error
	s.indexHTML, err = template.ParseFS(staticFiles, "assets/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	dashboardJS, err := staticFiles.ReadFile("assets/dashboard.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard.js: %w", err)
	}

	transpiled := api.Transform(string(dashboardJS), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !s.debug,
		MinifyIdentifiers: !s.debug,
		MinifyWhitespace:  !s.debug,
	})

	if len(transpiled.Errors) > 0 {
		return nil, fmt.Errorf("dashboard script failed with: %v", transpiled.Errors)
	}

	s.scriptContent = string(transpiled.Code)
	s.websocket = NewWebSocketManager(log, manager)
	s.manager.OnRemove(s.stopAnimator)
	s.router = s.routes()

	return s, nil
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.Lock()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.Unlock()

	s.log.Infof("Dashboard available at http://localhost:%d", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve dashboard: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and disposes every session
func (s *Server) Shutdown(ctx context.Context) error {
	s.Lock()
	srv := s.httpServer
	s.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.manager.Close()
	return err
}

// sessionOptions wires the server's collaborators into sessions it launches
func (s *Server) sessionOptions() []simulation.Option {
	options := []simulation.Option{simulation.WithMetrics(s.metrics)}
	if s.storage != nil {
		options = append(options, simulation.WithStorage(s.storage))
	}
	if s.notifier != nil {
		options = append(options, simulation.WithNotifier(s.notifier))
	}
	return options
}

// CreateSession launches a session from a launch form
func (s *Server) CreateSession(ctx context.Context, req simulation.Request) (*simulation.Session, error) {
	return s.launcher.Launch(ctx, req)
}

// animator returns the animator of a session, starting one on first use.
// Sessions may be added to the manager by other components, so animators
// are created lazily.
func (s *Server) animator(session *simulation.Session) *Animator {
	s.Lock()
	defer s.Unlock()

	if animator, ok := s.animators[session.ID()]; ok {
		return animator
	}

	animator := NewAnimator(s.renderer, session, s.frameInterval)
	animator.Start()
	s.animators[session.ID()] = animator
	return animator
}

func (s *Server) stopAnimator(id string) {
	s.Lock()
	animator, ok := s.animators[id]
	delete(s.animators, id)
	s.Unlock()

	if ok {
		animator.Stop()
	}
}
