package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fortiblox/x1-mint/pkg/metrics"
	"github.com/fortiblox/x1-mint/pkg/runtime"
)

// ServerConfig holds configuration for the RPC server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8899" or "127.0.0.1:8899")
	Address string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxRequestSize is the maximum size of a request body in bytes.
	MaxRequestSize int64

	// AllowedOrigins for CORS (empty means allow all).
	AllowedOrigins []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         ":8899",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxRequestSize:  1 << 20,
		AllowedOrigins:  []string{"*"},
	}
}

// Server is the HTTP front end of a runtime.
type Server struct {
	config      *ServerConfig
	handlers    *Handlers
	httpMetrics *HTTPMetrics
	registry    *prometheus.Registry
	engine      *gin.Engine
	logger      zerolog.Logger

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// NewServer creates a server for rt. The HTTP collectors are registered on
// m's registry so /metrics serves both; when m is nil it serves HTTP metrics only.
func NewServer(config *ServerConfig, rt *runtime.Runtime, m *metrics.Metrics) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	registry := prometheus.NewRegistry()
	if m != nil {
		registry = m.Registry()
	}

	s := &Server{
		config:      config,
		handlers:    NewHandlers(rt),
		httpMetrics: NewHTTPMetrics(registry),
		registry:    registry,
		logger:      log.Logger.With().Str("component", "rpc").Logger(),
	}
	s.engine = s.routes()
	return s
}

// Handlers returns the handlers instance.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		RequestLogger(s.logger),
		s.httpMetrics.Middleware(),
		CORSMiddleware(s.config.AllowedOrigins),
		MaxBodyMiddleware(s.config.MaxRequestSize),
	)

	r.POST("/", s.handleJSONRPC)
	r.GET("/health", s.handlers.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/accounts/:pubkey", s.handlers.getAccount)
	r.POST("/instructions/initialize-mint", s.handlers.initializeMint)

	return r
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.server = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Address).Msg("rpc server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("rpc server stopping")
	return s.server.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// handleJSONRPC processes JSON-RPC requests posted to /.
func (s *Server) handleJSONRPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, errorResponse(nil, NewRPCError(ParseError, "failed to read request body")))
		return
	}

	if len(body) > 0 && body[0] == '[' {
		s.handleBatchRequest(c, body)
		return
	}
	c.JSON(http.StatusOK, s.processRequest(c.Request.Context(), body))
}

// handleBatchRequest processes a batch of JSON-RPC requests.
func (s *Server) handleBatchRequest(c *gin.Context, body []byte) {
	var requests []json.RawMessage
	if err := json.Unmarshal(body, &requests); err != nil {
		c.JSON(http.StatusOK, errorResponse(nil, NewRPCError(ParseError, "invalid JSON")))
		return
	}
	if len(requests) == 0 {
		c.JSON(http.StatusOK, errorResponse(nil, NewRPCError(InvalidRequest, "empty batch")))
		return
	}

	responses := make([]RPCResponse, 0, len(requests))
	for _, reqBody := range requests {
		response := s.processRequest(c.Request.Context(), reqBody)
		// Notifications get no response.
		if response.ID != nil {
			responses = append(responses, response)
		}
	}
	c.JSON(http.StatusOK, responses)
}

// processRequest processes a single JSON-RPC request.
func (s *Server) processRequest(ctx context.Context, body []byte) RPCResponse {
	var request RPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return errorResponse(nil, NewRPCError(ParseError, "invalid JSON"))
	}
	if request.JSONRPC != JSONRPCVersion {
		return errorResponse(request.ID, NewRPCError(InvalidRequest, "invalid jsonrpc version"))
	}

	handler := s.handlers.GetHandler(request.Method)
	if handler == nil {
		return errorResponse(request.ID, NewRPCError(MethodNotFound, fmt.Sprintf("method not found: %s", request.Method)))
	}

	result, rpcErr := handler(ctx, request.Params)
	if rpcErr != nil {
		return errorResponse(request.ID, rpcErr)
	}
	return RPCResponse{
		JSONRPC: JSONRPCVersion,
		Result:  result,
		ID:      request.ID,
	}
}

func errorResponse(id interface{}, rpcErr *RPCError) RPCResponse {
	return RPCResponse{
		JSONRPC: JSONRPCVersion,
		Error:   rpcErr,
		ID:      id,
	}
}
