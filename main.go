package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"codejournal/internal/handlers"
	"codejournal/internal/middleware"
	"codejournal/internal/repositories"
	"codejournal/internal/services"
	"codejournal/pkg/rabbitmq"
)

// NewApp builds the configured Fiber app with all routes wired. The
// returned RabbitMQ client is nil when event publishing is disabled.
func NewApp() (*fiber.App, *rabbitmq.Client, error) {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":3000")
	viper.SetDefault("DATABASE_DIR", "database")
	viper.SetDefault("JWT_SECRET", "dev_jwt_secret")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	databaseDir := viper.GetString("DATABASE_DIR")
	jwtSecret := viper.GetString("JWT_SECRET")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")

	// --- Storage ---
	store := repositories.NewFileStore(databaseDir)
	if err := store.Init(); err != nil {
		return nil, nil, err
	}
	log.Printf("User file database initialized at %s", databaseDir)

	// --- Events (optional) ---
	var mqClient *rabbitmq.Client
	var events services.EventPublisher
	if rabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
		} else {
			mqClient = client
			events = client
		}
	}

	// --- Services ---
	directoryService := services.NewDirectoryService(store, events)
	gamificationService := services.NewGamificationService(store, events)
	authService := services.NewAuthService(store, directoryService, gamificationService, jwtSecret)
	statsService := services.NewStatsService(store)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(gamificationService, statsService)
	executionHandler := handlers.NewExecutionHandler(gamificationService)
	projectHandler := handlers.NewProjectHandler(gamificationService, directoryService)
	statsHandler := handlers.NewStatsHandler(statsService, directoryService)
	adminHandler := handlers.NewAdminHandler(statsService, directoryService)

	// --- Fiber app ---
	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New())

	api := app.Group("/api")
	authHandler.RegisterRoutes(api)
	sessionHandler.RegisterRoutes(api)
	executionHandler.RegisterRoutes(api)
	projectHandler.RegisterRoutes(api)
	statsHandler.RegisterRoutes(api)

	// --- Health check ---
	api.Get("/health", func(c *fiber.Ctx) error {
		masterStatus := "Available"
		if _, err := store.LoadMaster(); err != nil {
			masterStatus = "Missing"
		}
		ids, err := store.ListUserIDs()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"status":  "ERROR",
				"database": fiber.Map{
					"status": "Disconnected",
					"error":  err.Error(),
				},
			})
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"status":    "OK",
			"timestamp": time.Now().Format(time.RFC3339),
			"database": fiber.Map{
				"status":     "Connected",
				"type":       "Individual User Files",
				"userFiles":  len(ids),
				"masterFile": masterStatus,
			},
		})
	})

	// Admin and export routes require a valid token. Registered after the
	// public routes: the group's middleware guards every /api route added
	// below it in the stack.
	protected := app.Group("/api", middleware.AuthRequired(authService))
	adminHandler.RegisterRoutes(protected)

	return app, mqClient, nil
}

func main() {
	app, mqClient, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	if mqClient != nil {
		defer mqClient.Close()

		// Demo consumer: log gamification events as they arrive.
		go func() {
			log.Println("Starting RabbitMQ consumer for gamification events...")
			handler := func(msg amqp.Delivery) error {
				log.Printf("Received %s event (tag %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if err := mqClient.ConsumeEvents(handler); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}()
	}

	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
