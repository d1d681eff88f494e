// Package httpapi exposes the account service as a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/metrics"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/services"
)

type AccountAPI interface {
	AddAccount(ctx context.Context, req services.AddAccountRequest) error
	GetAccount(ctx context.Context, accountID string) (*models.AccountView, error)
	ConfirmEmail(ctx context.Context, sessionReceipt string) error
	SetWallet(ctx context.Context, sessionReceipt, wallet string) (string, error)
	ResetRequest(ctx context.Context, email, captchaResponse, origin, sourceIP string) error
	ResetWallet(ctx context.Context, sessionReceipt, wallet string) error
	GetRef(ctx context.Context, code string) (*models.RefInfo, error)
	ListRefs(ctx context.Context, accountID string) ([]models.Referral, error)
	QueryAccount(ctx context.Context, email string) (string, error)
}

type ForwardAPI interface {
	Forward(ctx context.Context, forwardReceipt string) (*models.RelayMessage, error)
	QueryUnlockReceipt(ctx context.Context, unlockRequest string) (string, error)
}

type Handler struct {
	accounts  AccountAPI
	forwarder ForwardAPI
	logger    logging.Logger
	metrics   *metrics.Metrics
}

func NewHandler(accounts AccountAPI, forwarder ForwardAPI, l logging.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		accounts:  accounts,
		forwarder: forwarder,
		logger:    l.With("module", "http_server"),
		metrics:   m,
	}
}

const requestIDHeader = "X-Request-ID"

// Router builds the gin engine with all routes. metricsPath may be empty
// to leave the Prometheus handler unmounted.
func (h *Handler) Router(metricsPath string) *gin.Engine {
	r := gin.New()
	r.Use(h.requestID(), h.observe(), h.recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "OK"}) })
	if metricsPath != "" && h.metrics != nil {
		r.GET(metricsPath, gin.WrapH(h.metrics.Handler()))
	}

	r.POST("/account/:accountId", h.AddAccount)
	r.GET("/account/:accountId", h.GetAccount)
	r.GET("/account/:accountId/refs", h.ListRefs)
	r.POST("/confirm", h.ConfirmEmail)
	r.POST("/wallet", h.SetWallet)
	r.PUT("/wallet", h.ResetWallet)
	r.POST("/reset", h.ResetRequest)
	r.GET("/ref/:refCode", h.GetRef)
	r.POST("/query", h.QueryAccount)
	r.POST("/forward", h.Forward)
	r.POST("/unlock", h.QueryUnlockReceipt)

	return r
}

func (h *Handler) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqID, _ := c.Get(requestIDHeader)
		status := c.Writer.Status()

		h.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
			"request_id", reqID,
		)
		if h.metrics != nil {
			h.metrics.ObserveRequest("http", c.Request.Method+" "+path, http.StatusText(status), latency)
		}
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error(c.Request.Context(), "panic", "error", rec, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Kind: "Error", Message: "internal error"})
			}
		}()
		c.Next()
	}
}

// Server runs the router until the context is cancelled.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(addr string, h http.Handler, l logging.Logger) *Server {
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second},
		logger: l.With("module", "http_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
