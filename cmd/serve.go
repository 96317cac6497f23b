package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foerderwerk/rulecore/internal/engine"
	"github.com/foerderwerk/rulecore/internal/gate"
	"github.com/foerderwerk/rulecore/internal/intake"
	"github.com/foerderwerk/rulecore/internal/model"
	"github.com/foerderwerk/rulecore/internal/store"
)

var servePort int

type apiServer struct {
	store     store.Store
	gate      *gate.Gate
	engine    *engine.Engine
	validator *intake.Validator
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP evaluation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		active, err := st.ActiveBundle(ctx)
		if err != nil {
			return err
		}

		api := &apiServer{
			store:     st,
			gate:      gate.New(active),
			engine:    engine.New(deriveParams(cfg)),
			validator: intake.New(),
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
		r.Use(rateLimit(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst))

		r.Get("/health", api.handleHealth)
		r.Get("/bundles/active", api.handleActiveBundle)
		r.Post("/bundles/approve", api.handleApprove)
		r.Post("/evaluate", api.handleEvaluate)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// rateLimit applies a shared token bucket to every request.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleActiveBundle(w http.ResponseWriter, r *http.Request) {
	bundle := s.gate.Active()
	if bundle == nil {
		writeError(w, http.StatusNotFound, "no active bundle")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BundleID string `json:"bundle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BundleID == "" {
		writeError(w, http.StatusBadRequest, "bundle_id is required")
		return
	}

	bundle, err := s.store.GetBundle(r.Context(), req.BundleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bundle == nil {
		writeError(w, http.StatusNotFound, "bundle not found")
		return
	}

	if err := s.gate.Stage(bundle); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.gate.Validate(bundle.GuardReports, bundle.Coverage); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	promoted, diff, err := s.gate.Promote(true)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.RecordBundleState(r.Context(), promoted.BundleID, model.BundleActive, "approved via api"); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	zap.L().Info("bundle approved",
		zap.String("bundle_id", promoted.BundleID),
		zap.Bool("material_diff", diff.Material()))
	writeJSON(w, http.StatusOK, map[string]any{
		"bundle_id": promoted.BundleID,
		"state":     promoted.State,
		"diff":      diff,
	})
}

func (s *apiServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var facts model.OfferFacts
	if err := json.NewDecoder(r.Body).Decode(&facts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bundle := s.gate.Active()
	if bundle == nil {
		writeError(w, http.StatusServiceUnavailable, "no active bundle")
		return
	}

	if violations, err := s.validator.Validate(facts); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "invalid offer facts",
			"violations": violations,
		})
		return
	}

	result := s.engine.EvaluateCase(bundle, facts)
	if err := s.store.SaveEvaluation(r.Context(), &result); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
