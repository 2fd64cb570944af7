package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/zdi-academy/backend/internal/challenges"
	"github.com/zdi-academy/backend/internal/config"
	"github.com/zdi-academy/backend/internal/database"
	"github.com/zdi-academy/backend/internal/gamification"
	"github.com/zdi-academy/backend/internal/logger"
	"github.com/zdi-academy/backend/internal/metrics"
	"github.com/zdi-academy/backend/internal/middleware"
	"github.com/zdi-academy/backend/internal/progress"
	"github.com/zdi-academy/backend/internal/quiz"
	"github.com/zdi-academy/backend/internal/tracing"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so fall back to a default one.
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log, cfg.Server.Mode)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	metrics.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	// Initialize database
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	rules, err := gamification.DefaultRules().WithOverrides(
		cfg.Gamification.EventPointTable(),
		cfg.Gamification.LevelThresholds,
	)
	if err != nil {
		return err
	}

	// Initialize services
	gamService := gamification.NewService(gamification.NewStore(db), rules, log)
	progressService := progress.NewService(progress.NewStore(db), gamService, log)
	quizService := quiz.NewService(quiz.NewStore(db), progressService, gamService, log)
	challengeService := challenges.NewService(challenges.NewStore(db), gamService, progressService, log)

	if cfg.Redis.Enabled {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, leaderboard served from database", zap.Error(err))
		} else {
			defer rdb.Close()
			gamService.SetLeaderboardCache(gamification.NewRedisLeaderboard(rdb))

			sched, err := gamService.StartLeaderboardSync(ctx, cfg.Gamification.LeaderboardSyncInterval)
			if err != nil {
				return err
			}
			defer sched.Shutdown()
		}
	}

	// Initialize handlers
	gamHandler := gamification.NewHandler(gamService, log)
	progressHandler := progress.NewHandler(progressService, log)
	quizHandler := quiz.NewHandler(quizService, log)
	challengeHandler := challenges.NewHandler(challengeService, log)

	flagLimiter := middleware.NewUserRateLimiter(ctx, cfg.RateLimit.FlagSubmissionsPerMinute, cfg.RateLimit.Burst)

	// Setup router
	r := mux.NewRouter()
	r.Use(tracing.Middleware, middleware.Metrics, middleware.Logging(log))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/achievements", gamHandler.ListAchievements).Methods("GET")
	api.HandleFunc("/leaderboard", gamHandler.GetLeaderboard).Methods("GET")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth([]byte(cfg.JWT.Secret)))
	protected.HandleFunc("/me/stats", gamHandler.GetMyStats).Methods("GET")
	protected.HandleFunc("/me/achievements", gamHandler.ListMyAchievements).Methods("GET")
	protected.HandleFunc("/lessons/{id}/complete", progressHandler.CompleteLesson).Methods("POST")
	protected.HandleFunc("/labs/{id}/complete", progressHandler.CompleteLab).Methods("POST")
	protected.HandleFunc("/lessons/{id}/quiz", quizHandler.SubmitQuiz).Methods("POST")
	protected.Handle("/challenges/{id}/submit",
		flagLimiter.Middleware(http.HandlerFunc(challengeHandler.SubmitFlag))).Methods("POST")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
