package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where metrics are served.
const MetricsPath = "/metrics"

// ShutdownTimeout bounds graceful shutdown of Server.
const ShutdownTimeout = 3 * time.Second

// Handler serves metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewMux creates a ServeMux with metrics and a health check.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, Handler(g))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Server is a Runnable HTTP server.
type Server struct {
	Addr    string
	Handler http.Handler

	listener net.Listener
}

// Listen binds Addr. It's optional before Run.
func (s *Server) Listen() (net.Addr, error) {
	if s.listener == nil {
		l, err := net.Listen("tcp", s.Addr)
		if err != nil {
			return nil, err
		}
		s.listener = l
	}
	return s.listener.Addr(), nil
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(s.listener)
	}()
	glog.Infof("HTTP serving on %s", addr)

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		glog.Warningf("HTTP shutdown: %v", err)
	}
	if err = <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
