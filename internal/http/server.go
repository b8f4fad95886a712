// Package http exposes the budget plan as a JSON API: interval and cost
// resolution reads plus the mutation surface for buckets, groups,
// templates and month configs.
package http

import (
	"context"
	"net/http"
	"sync"

	"busta/internal/middleware/trace"
	"busta/internal/services"
)

type Server struct {
	http.Server
	svc         *services.PlanService
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.PlanService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc:         svc,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Resolution reads.
	mux.HandleFunc("GET /api/interval", s.handleResolveInterval)
	mux.HandleFunc("GET /api/months/{month}/plan", s.handleMonthPlan)
	mux.HandleFunc("GET /api/buckets/{id}/cost", s.handleBucketCost)

	// Bucket mutations.
	mux.HandleFunc("POST /api/buckets", s.handleCreateBucket)
	mux.HandleFunc("PUT /api/buckets/{id}/months/{month}", s.handleEditBucketMonth)
	mux.HandleFunc("POST /api/buckets/{id}/months/{month}/confirm", s.handleConfirmBucketMonth)
	mux.HandleFunc("DELETE /api/buckets/{id}", s.handleDeleteBucket)

	// Group mutations.
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("PUT /api/groups/{id}/months/{month}", s.handleSetGroupLimit)
	mux.HandleFunc("POST /api/groups/{id}/months/{month}/confirm", s.handleConfirmGroupMonth)

	// Sub-categories and transactions.
	mux.HandleFunc("POST /api/subcategories", s.handleCreateSubCategory)
	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)

	// Templates and month configs.
	mux.HandleFunc("POST /api/templates", s.handleCreateTemplate)
	mux.HandleFunc("POST /api/templates/snapshot", s.handleSnapshotTemplate)
	mux.HandleFunc("PUT /api/months/{month}/template", s.handleAssignTemplate)
	mux.HandleFunc("POST /api/months/{month}/reset", s.handleResetMonth)
	mux.HandleFunc("POST /api/months/{month}/lock", s.handleLockMonth)
	mux.HandleFunc("PUT /api/months/{month}/overrides/buckets/{id}", s.handleSetBucketOverride)
	mux.HandleFunc("PUT /api/months/{month}/overrides/groups/{id}", s.handleSetGroupOverride)
	mux.HandleFunc("PUT /api/months/{month}/overrides/subcategories/{id}", s.handleSetSubCategoryOverride)

	tracer := trace.NewMiddleware(clientIP)
	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Wrap(s.withRateLimit(mux)),
	}
	return s
}

// withRateLimit applies security headers to every response and per-client
// rate limiting to mutating requests. Reads are cached downstream and stay
// unthrottled.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.rateLimiter.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
