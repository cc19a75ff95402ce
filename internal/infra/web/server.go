package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"drug-shortage-assistant/internal/infra/logging"
	"drug-shortage-assistant/internal/usecase"
)

// workerRunner processes at most one job per call; satisfied by
// worker.Processor. The trigger endpoint exists so external schedulers
// (cron, CI) can drive the queue without a resident loop.
type workerRunner interface {
	RunOnce(ctx context.Context) (bool, error)
}

// staleSweeper runs one reclaim pass; satisfied by sched.Reclaimer.
type staleSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Server struct {
	docUC   usecase.DocumentUseCase
	chatUC  usecase.ChatUseCase
	runner  workerRunner
	sweeper staleSweeper
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(
	docUC usecase.DocumentUseCase,
	chatUC usecase.ChatUseCase,
	runner workerRunner,
	sweeper staleSweeper,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "Web").Logger()
	return &Server{
		docUC:   docUC,
		chatUC:  chatUC,
		runner:  runner,
		sweeper: sweeper,
		auth:    auth,
		log:     &l,
	}
}

// Router builds the chi router for the whole API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(6 * time.Minute)) // above the await budget

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/jobs", s.handleEnqueue)
			r.Get("/job", s.handleSessionJob)
			r.Get("/document", s.handleGetDocument)
			r.Post("/document", s.handleSaveDocument)
			r.Post("/chat", s.handleChat)
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{jobID}", s.handleJobStatus)
			r.Get("/{jobID}/await", s.handleAwait)
			r.Post("/{jobID}/retry", s.handleRetry)
			r.With(s.auth.adminOnly).Post("/recover", s.handleRecover)
		})
		r.Post("/worker/run", s.handleWorkerRun)
	})

	return r
}

// requestContext stamps the chi request ID into the context as the trace
// ID and logs one line per request with the trace-aware logger.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		l := logging.With(ctx, s.log)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
