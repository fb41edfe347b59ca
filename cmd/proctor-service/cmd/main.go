package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/config"
	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/detection"
	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/handlers"
	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/models"
	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/monitor"
	"github.com/aqs21/TrueScreen/internal/auth"
	"github.com/aqs21/TrueScreen/internal/notifications"
	"github.com/aqs21/TrueScreen/internal/ratelimit"
	pkghandlers "github.com/aqs21/TrueScreen/pkg/handlers"
)

// corsMiddleware adds CORS headers to responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupRooms periodically removes rooms that are empty or long idle, so
// abandoned meetings do not accumulate for the process lifetime.
func cleanupRooms(manager models.RoomManager, interval, inactiveThreshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		for _, room := range manager.GetAllRooms() {
			if now.Sub(room.LastActivity) > inactiveThreshold {
				if err := manager.RemoveRoom(room.ID); err != nil {
					log.Printf("[ERROR] Failed to clean up room %s: %v", room.ID, err)
				}
				continue
			}
			// Empty rooms are pruned with a membership re-check so a
			// join racing the sweep is never stranded.
			manager.RemoveRoomIfEmpty(room.ID)
		}
	}
}

func main() {
	log.Printf("[INFO] Starting proctor service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Redis is optional: without it the room mirror, notification queue and
	// rate limiter all degrade to no-ops and the service stays in-memory.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[ERROR] Redis unavailable at %s, continuing without it: %v", cfg.RedisAddr, err)
			rdb = nil
		} else {
			log.Printf("[INFO] Connected to Redis at %s", cfg.RedisAddr)
		}
	}

	roomManager := models.NewRoomManager()
	roomManager.SetRedisClient(rdb)
	meetings := models.NewMeetingRegistry()

	authService := auth.NewService(cfg.SessionTTL)
	limiter := ratelimit.NewLimiter(rdb)
	notifier := notifications.NewService(rdb)

	faceDetector, err := detection.NewPigoDetector(cfg.FaceCascade)
	if err != nil {
		log.Fatalf("Failed to load face cascade: %v", err)
	}
	objectDetector := detection.NewHostedDetector(cfg.DetectURL, cfg.DetectAPIKey, cfg.DetectModelID, cfg.DetectTimeout)
	pipeline := detection.NewPipeline(faceDetector, objectDetector, cfg.ObjectConfidenceMin, cfg.ObjectAreaMin)

	tabMonitor := monitor.New(cfg.TabSwitchLimit, notifier)

	wsHandler := handlers.NewWebSocketHandler(roomManager, tabMonitor)
	detectHandler := handlers.NewDetectHandler(roomManager, pipeline, limiter)
	authHandler := handlers.NewAuthHandler(authService, limiter)
	meetingHandler := handlers.NewMeetingHandler(meetings)

	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ws", wsHandler.HandleWebSocket)
	r.HandleFunc("/detect", detectHandler.Detect).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/meetings", authHandler.RequireSession(meetingHandler.Create)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/meetings/{meetingId}", authHandler.RequireSession(meetingHandler.Get)).Methods("GET", "OPTIONS")

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		iceHandler := pkghandlers.NewIceHandler(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
		r.HandleFunc("/api/ice-servers", iceHandler.GetIceServers).Methods("GET", "OPTIONS")
		log.Printf("[INFO] ICE credential endpoint enabled")
	} else {
		log.Printf("[INFO] Twilio credentials not set, ICE credential endpoint disabled")
	}

	go cleanupRooms(roomManager, cfg.RoomCleanupInterval, cfg.RoomInactiveThreshold)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] Proctor service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down proctor service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Proctor service exited")
}
