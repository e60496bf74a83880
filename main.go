package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/lensora/tryon-backend/api"
	"github.com/lensora/tryon-backend/compositor"
	"github.com/lensora/tryon-backend/config"
	"github.com/lensora/tryon-backend/detector"
	"github.com/lensora/tryon-backend/store"
	"github.com/lensora/tryon-backend/tryon"
	"github.com/lensora/tryon-backend/utils"
)

func main() {
	config.LoadConfig()

	// Initialize MongoDB
	if err := utils.ConnectMongo(config.MongoURI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer utils.DisconnectMongo(context.Background())

	// Initialize S3
	if err := utils.InitS3(); err != nil {
		log.Fatalf("Failed to initialize S3: %v", err)
	}

	// Try-on pipeline. The detection model itself loads lazily on the
	// first request.
	modelManager := detector.NewModelManager(config.ModelPath)
	service := tryon.NewService(
		detector.NewSCRFD(modelManager, config.ModelInputSize),
		compositor.New(),
		store.NewMongoProductStore(),
		store.NewMongoSessionStore(),
		store.NewS3ObjectStore(),
	)
	tryOnHandler := api.NewTryOnHandler(service)

	// CORS Middleware
	corsMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Auth Routes
	http.HandleFunc("/auth/signup", corsMiddleware(api.SignupHandler))
	http.HandleFunc("/auth/verify-otp", corsMiddleware(api.VerifyOTPHandler))
	http.HandleFunc("/auth/login", corsMiddleware(api.LoginHandler))
	http.HandleFunc("/auth/forgot-password", corsMiddleware(api.ForgotPasswordHandler))
	http.HandleFunc("/auth/reset-password", corsMiddleware(api.ResetPasswordHandler))
	http.HandleFunc("/auth/google/login", corsMiddleware(api.GoogleLoginHandler))
	http.HandleFunc("/auth/google/callback", corsMiddleware(api.GoogleCallbackHandler))

	// Virtual Try-On Routes
	http.HandleFunc("/api/tryon", corsMiddleware(api.AuthMiddleware(tryOnHandler.Create)))
	http.HandleFunc("/api/tryon/sessions", corsMiddleware(api.AuthMiddleware(tryOnHandler.List)))
	http.HandleFunc("/api/tryon/sessions/{id}", corsMiddleware(api.AuthMiddleware(tryOnHandler.Session)))

	port := config.Port
	fmt.Printf("Server starting on port %s...\n", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
