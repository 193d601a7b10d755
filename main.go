package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/basecampy/authbackend/controllers"
	"github.com/basecampy/authbackend/database"
	"github.com/basecampy/authbackend/logger"
	"github.com/basecampy/authbackend/middleware"
	"github.com/basecampy/authbackend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	isDev := os.Getenv("GIN_MODE") != "release"
	logger.Init(isDev, os.Getenv("SENTRY_DSN"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := database.Connect(connectCtx); err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Disconnect(context.Background()); err != nil {
			slog.Error("failed to disconnect from MongoDB", "error", err)
		}
	}()
	if err := database.EnsureIndexes(connectCtx); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	store := database.NewMongoUserStore()
	mailer := utils.NewResendMailer()
	imageValidator := utils.NewImageValidator()

	r := gin.New()

	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	v1.GET("/healthcheck", controllers.Healthcheck())

	auth := v1.Group("/auth")
	auth.POST("/register", controllers.Register(store, mailer))
	auth.POST("/login", controllers.Login(store))
	auth.GET("/verify-email/:token", controllers.VerifyEmail(store))
	auth.POST("/refresh-token", controllers.RefreshAccessToken(store))
	auth.POST("/forgot-password", controllers.ForgotPassword(store, mailer))
	auth.POST("/reset-password/:token", controllers.ResetPassword(store))

	protected := auth.Group("")
	protected.Use(middleware.AuthMiddleware(store))
	{
		protected.POST("/logout", controllers.Logout(store))
		protected.GET("/current-user", controllers.GetCurrentUser())
		protected.POST("/change-password", controllers.ChangePassword(store))
		protected.POST("/resend-email-verification", controllers.ResendEmailVerification(store, mailer))
		protected.POST("/avatar", controllers.UploadAvatar(store, imageValidator))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
