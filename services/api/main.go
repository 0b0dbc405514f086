// API-сервис приложения для пар: аутентификация с ротацией refresh-токенов,
// чекины, планы, челленджи, рекомендации мест и месячные отчёты.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lovenav/internal/config"
	"github.com/lovenav/internal/geocode"
	"github.com/lovenav/internal/handler"
	"github.com/lovenav/internal/llm"
	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
	"github.com/lovenav/internal/startup"
	"github.com/lovenav/internal/token"
	"github.com/lovenav/internal/weather"
)

func main() {
	logger.SetPrefix("api")
	logger.Info("starting api service")
	cfg := config.Load()

	db := startup.ConnectMongoWithRetry(cfg.Mongo.URI, cfg.Mongo.Database, 60*time.Second, "api: ")
	redisClient := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "api: ")
	defer redisClient.Close()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := startup.EnsureIndexes(bootCtx, db); err != nil {
		logger.Errorf("ensure indexes: %v", err)
		os.Exit(1)
	}
	bootCancel()

	userRepo := repository.NewUserRepository(db)
	coupleRepo := repository.NewCoupleRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	planRepo := repository.NewPlanRepository(db)
	placeRepo := repository.NewPlaceRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	reportRepo := repository.NewReportRepository(db)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	startup.SeedPlaces(seedCtx, placeRepo)
	seedCancel()

	codec, err := token.NewCodec(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		logger.Errorf("init token codec: %v", err)
		os.Exit(1)
	}

	if cfg.External.OpenWeatherAPIKey == "" {
		logger.Info("OPENWEATHER_API_KEY не задан, погода будет по умолчанию")
	}
	if cfg.External.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY не задан, AI-курсы и резюме отчётов отключены")
	}

	weatherClient := weather.New(cfg.External.OpenWeatherAPIKey, redisClient)
	geoClient := geocode.New(cfg.External.KakaoRESTAPIKey)
	llmClient := llm.New(cfg.External.GeminiAPIKey, cfg.External.GeminiModel)

	authSvc := service.NewAuthService(userRepo, redisClient, codec, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL(), cfg.AdminEmail)
	coupleSvc := service.NewCoupleService(coupleRepo, userRepo)
	challengeSvc := service.NewChallengeService(visitRepo)
	visitSvc := service.NewVisitService(visitRepo, coupleRepo, challengeRepo)
	recommendSvc := service.NewRecommendService(placeRepo, weatherClient, geoClient, llmClient)
	reportSvc := service.NewReportService(visitRepo, planRepo, reportRepo, coupleSvc, challengeSvc, llmClient)
	taskSvc := service.NewLLMTaskService(redisClient, llmClient, llmClient)

	authH := handler.NewAuthHandler(authSvc, cfg.AuthCookiePath(), cfg.JWT.CookieSecure, int(cfg.JWT.RefreshTTL().Seconds()))
	userH := handler.NewUserHandler(userRepo)
	coupleH := handler.NewCoupleHandler(coupleSvc)
	bookmarkH := handler.NewBookmarkHandler(bookmarkRepo, coupleSvc)
	visitH := handler.NewVisitHandler(visitSvc, coupleSvc)
	planH := handler.NewPlanHandler(planRepo, coupleSvc)
	challengeH := handler.NewChallengeHandler(challengeSvc, challengeRepo, coupleSvc)
	reportH := handler.NewReportHandler(reportSvc, coupleSvc)
	recommendH := handler.NewRecommendHandler(recommendSvc, placeRepo, coupleSvc)
	aiH := handler.NewAIHandler(taskSvc, reportSvc, coupleSvc)
	adminH := handler.NewAdminHandler(challengeRepo)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOriginsList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Use(middleware.RateLimitAPI)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitAuth).Post("/signup", authH.Signup)
			r.With(middleware.RateLimitAuth).Post("/login", authH.Login)
			r.With(middleware.RateLimitAuth).Post("/refresh", authH.Refresh)
			r.Post("/logout", authH.Logout)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(authSvc))
				r.Get("/me", authH.Me)
				r.Get("/sessions", authH.Sessions)
				r.Delete("/sessions/{id}", authH.RevokeSession)
			})
		})

		r.Get("/config/maps", handler.MapsConfig(cfg.External.KakaoMapAppKey))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authSvc))

			r.Put("/users/me", userH.UpdateMe)

			r.Route("/couples", func(r chi.Router) {
				r.Get("/me", coupleH.Me)
				r.Post("/invite", coupleH.RegenerateInvite)
				r.Post("/join", coupleH.Join)
				r.Patch("/preferences", coupleH.UpdatePreferences)
			})

			r.Route("/bookmarks", func(r chi.Router) {
				r.Post("/", bookmarkH.Create)
				r.Get("/", bookmarkH.List)
				r.Delete("/{id}", bookmarkH.Delete)
			})

			r.Route("/visits", func(r chi.Router) {
				r.Post("/checkin", visitH.Create)
				r.Get("/", visitH.List)
				r.Put("/{id}", visitH.Update)
				r.Delete("/{id}", visitH.Delete)
			})

			r.Route("/planner/plans", func(r chi.Router) {
				r.Post("/", planH.Create)
				r.Get("/", planH.List)
				r.Get("/{id}", planH.Get)
				r.Put("/{id}", planH.Update)
				r.Delete("/{id}", planH.Delete)
			})

			r.Route("/challenges", func(r chi.Router) {
				r.Get("/", challengeH.Progress)
				r.Get("/places", challengeH.Places)
				r.Get("/categories", challengeH.Categories)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/monthly", reportH.Monthly)
				r.Post("/monthly/summary", reportH.MonthlySummary)
				r.Post("/monthly/save", reportH.SaveMonthly)
				r.Get("/saved", reportH.ListSaved)
				r.Get("/saved/{id}", reportH.GetSaved)
				r.Delete("/saved/{id}", reportH.DeleteSaved)
			})

			r.Post("/recommendations/recommend", recommendH.Recommend)
			r.Get("/recommendations/budget-ranges", recommendH.BudgetRanges)
			r.Get("/recommendations/preference-tags", recommendH.PreferenceTags)
			r.Get("/recommendations/weather", recommendH.Weather)
			r.Get("/places/nearby", recommendH.NearbyPlaces)
			r.Post("/map/suggestions", recommendH.MapSuggestions)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/course", aiH.EnqueueCourse)
				r.Post("/report", aiH.EnqueueReport)
				r.Get("/tasks/{id}", aiH.TaskStatus)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(cfg.AdminEmail))
				r.Route("/challenge-places", func(r chi.Router) {
					r.Post("/", adminH.CreateChallengePlace)
					r.Get("/", adminH.ListChallengePlaces)
					r.Put("/{id}", adminH.UpdateChallengePlace)
					r.Delete("/{id}", adminH.DeleteChallengePlace)
				})
				r.Route("/challenge-categories", func(r chi.Router) {
					r.Post("/", adminH.CreateChallengeCategory)
					r.Get("/", adminH.ListChallengeCategories)
					r.Put("/{id}", adminH.UpdateChallengeCategory)
					r.Delete("/{id}", adminH.DeleteChallengeCategory)
				})
			})
		})
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("api server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down api server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("api server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("api server stopped")
}
