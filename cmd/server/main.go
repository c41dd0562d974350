package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"go-messenger/internal/blob"
	"go-messenger/internal/conversation"
	"go-messenger/internal/db"
	"go-messenger/internal/event"
	"go-messenger/internal/message"
	myMiddleware "go-messenger/internal/middleware"
	"go-messenger/internal/reaction"
	"go-messenger/internal/typing"
	"go-messenger/internal/user"
	"go-messenger/internal/ws"
)

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", ":8080", "http service address")
	flag.Parse()

	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	blobDir := os.Getenv("BLOB_DIR")
	if blobDir == "" {
		blobDir = "./data/blobs"
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// 2. Connect to Database (Platform Layer)
	database, err := db.NewDatabase(dsn)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database schema initialized")

	// 3. Connect to Redis (Platform Layer)
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")

	bus := event.NewRedisBus(redisClient)

	// 4. Blob store (attachment boundary)
	blobStore, err := blob.NewLocal(blobDir, baseURL, []byte(jwtSecret), 15*time.Minute)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	blobHandler := blob.NewHandler(blobStore)

	// 5. Feature wiring
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, bus)
	userHandler := user.NewHandler(userService)

	convRepo := conversation.NewRepository(database.Conn)
	msgRepo := message.NewRepository(database.Conn)

	msgService := message.NewService(msgRepo, convRepo, userService, blobStore, bus)
	msgHandler := message.NewHandler(msgService)

	convService := conversation.NewService(convRepo, msgRepo, userService)
	convHandler := conversation.NewHandler(convService)

	reactionRepo := reaction.NewRepository(database.Conn)
	reactionService := reaction.NewService(reactionRepo, msgRepo, bus)
	reactionHandler := reaction.NewHandler(reactionService)

	typingRepo := typing.NewRepository(database.Conn)
	typingService := typing.NewService(typingRepo, userService, bus)
	typingHandler := typing.NewHandler(typingService)

	// Background hygiene: expired typing flags are filtered at read time,
	// the reaper just keeps the table small.
	go typingService.RunReaper(context.Background(), time.Minute)

	// 6. Real-time hub
	hub := ws.NewHub(redisClient, convRepo)
	go hub.Run()
	go hub.SubscribeToRedis(context.Background())
	wsHandler := ws.NewHandler(hub)

	authMiddleware := myMiddleware.NewAuthMiddleware(jwtSecret, userService)
	rateLimiter := myMiddleware.NewRateLimiter(25, 50)

	// 7. Routes
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// No caller identity here, so the limiter keys on the remote address.
	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Handle)

		r.Post("/webhooks/identity", userHandler.IdentityWebhook)
		r.Put("/blobs/{key}", blobStore.ServeUpload)
		r.Get("/blobs/{key}", blobStore.ServeFetch)
	})

	// Protected routes (require a provider-signed JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Use(rateLimiter.Handle)

		r.Get("/api/me", userHandler.Me)
		r.Get("/api/users", userHandler.ListUsers)
		r.Get("/api/users/search", userHandler.SearchUsers)

		r.Post("/api/presence/heartbeat", userHandler.Heartbeat)
		r.Post("/api/presence/offline", userHandler.SetOffline)
		r.Get("/api/presence/{userID}", userHandler.GetPresence)

		r.Post("/api/conversations/direct", convHandler.StartDirect)
		r.Post("/api/conversations/group", convHandler.CreateGroup)
		r.Get("/api/conversations", convHandler.ListMine)
		r.Get("/api/conversations/{conversationID}/members", convHandler.ListMembers)
		r.Post("/api/conversations/{conversationID}/read", convHandler.MarkRead)

		r.Post("/api/conversations/{conversationID}/messages", msgHandler.Send)
		r.Get("/api/conversations/{conversationID}/messages", msgHandler.List)
		r.Delete("/api/messages/{messageID}", msgHandler.Delete)

		r.Post("/api/messages/{messageID}/reactions", reactionHandler.Toggle)
		r.Get("/api/messages/{messageID}/reactions", reactionHandler.List)

		r.Post("/api/conversations/{conversationID}/typing", typingHandler.Set)
		r.Get("/api/conversations/{conversationID}/typing", typingHandler.ListActive)

		r.Post("/api/attachments", blobHandler.CreateUpload)

		// WebSocket (Real-time)
		r.Get("/ws", wsHandler.ServeWs)
	})

	log.Printf("Server starting on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}
