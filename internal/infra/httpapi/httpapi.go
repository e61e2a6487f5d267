// Package httpapi exposes the one ambient HTTP surface this system
// carries: an operator-facing health and status endpoint, so a running
// process can be probed without touching the chat surface or the
// database directly.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blocksentry/watchtower/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// IngestStatus is the subset of C5's state this endpoint reports.
type IngestStatus interface {
	LastProcessed() uint64
}

// DeliveryStatus is the subset of C8's state this endpoint reports.
type DeliveryStatus interface {
	Depths() map[string][2]int
}

// Server is a minimal gin HTTP server serving /healthz and /status.
type Server struct {
	server   *http.Server
	ingest   IngestStatus
	delivery DeliveryStatus
	started  time.Time
}

// New builds a Server bound to addr (":8080" style), reporting on ingest
// and delivery. Either dependency may be nil, in which case its portion
// of /status is omitted.
func New(addr string, ingest IngestStatus, delivery DeliveryStatus) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{ingest: ingest, delivery: delivery, started: time.Now()}
	router.GET("/healthz", s.healthz)
	router.GET("/status", s.status)

	s.server = &http.Server{Addr: addr, Handler: router}
	return s
}

// Run blocks serving HTTP until ctx is canceled or the listener fails. It
// does not stop the server itself; Close performs the graceful shutdown.
// Satisfies the shape shutdown.Manager steps expect.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Close shuts the underlying HTTP server down.
func (s *Server) Close(ctx context.Context) error {
	logger.Info(ctx, "http status server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) status(c *gin.Context) {
	body := gin.H{"uptime": time.Since(s.started).String()}

	if s.ingest != nil {
		body["last_processed_block"] = fmt.Sprintf("%d", s.ingest.LastProcessed())
	}
	if s.delivery != nil {
		queues := gin.H{}
		for botID, depth := range s.delivery.Depths() {
			queues[botID] = gin.H{"send": depth[0], "edit": depth[1]}
		}
		body["delivery_queues"] = queues
	}

	c.JSON(http.StatusOK, body)
}
