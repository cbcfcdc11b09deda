package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Jatinbaroliya/trustpayhub/internal/gateway"
	"github.com/Jatinbaroliya/trustpayhub/internal/handlers"
	"github.com/Jatinbaroliya/trustpayhub/internal/middleware"
	"github.com/Jatinbaroliya/trustpayhub/internal/models"
	"github.com/Jatinbaroliya/trustpayhub/internal/repositories"
	"github.com/Jatinbaroliya/trustpayhub/internal/services"
	"github.com/Jatinbaroliya/trustpayhub/pkg/rabbitmq"

	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	// Viper reads everything from environment variables with sane defaults.
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	viper.SetDefault("JWT_SECRET", "change_me_in_production")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 15)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASS", "postgres")
	viper.SetDefault("DB_NAME", "trustpayhub")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.AutomaticEnv() // Load environment variables

	appPort := viper.GetString("APP_PORT")
	baseURL := viper.GetString("PUBLIC_BASE_URL")
	jwtSecret := viper.GetString("JWT_SECRET")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")

	// Gateway credentials are resolved once here and injected; the service
	// never reads process state ad hoc. Per-user stored keys remain the
	// fallback when these are absent.
	gatewayCfg := services.GatewayConfig{
		KeyID:     viper.GetString("RAZORPAY_KEY_ID"),
		KeySecret: viper.GetString("RAZORPAY_KEY_SECRET"),
	}
	gatewayTimeout := time.Duration(viper.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second

	// --- Initialize Repositories ---
	// With a configured database the GORM repositories back the service;
	// without one the in-memory repositories let the app boot for local
	// development.
	var userRepo repositories.UserRepository
	var paymentRepo repositories.PaymentRepository
	if dbHost := viper.GetString("DB_HOST"); dbHost != "" {
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbHost,
			viper.GetString("DB_PORT"),
			viper.GetString("DB_USER"),
			viper.GetString("DB_PASS"),
			viper.GetString("DB_NAME"),
			viper.GetString("DB_SSLMODE"),
		)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.User{}, &models.Payment{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		userRepo = repositories.NewGORMUserRepository(db)
		paymentRepo = repositories.NewGORMPaymentRepository(db)
		log.Println("Database connected and migrated")
	} else {
		userRepo = repositories.NewMockUserRepository()
		paymentRepo = repositories.NewMockPaymentRepository()
		log.Println("DB_HOST not set, using in-memory repositories")
	}

	// --- Initialize RabbitMQ Client (optional) ---
	var mqClient *rabbitmq.Client
	var events services.EventPublisher
	if rabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		mqClient = client
		events = client
		defer mqClient.Close() // Ensure the connection is closed on exit
	} else {
		log.Println("RABBITMQ_URL not set, donation events disabled")
	}

	// --- Initialize Services ---
	orderClient := gateway.NewClient(gatewayTimeout)
	paymentService := services.NewPaymentService(paymentRepo, userRepo, orderClient, gatewayCfg, events)
	profileService := services.NewProfileService(userRepo, paymentRepo)
	authService := services.NewAuthService(userRepo, jwtSecret)

	// --- Initialize Handlers ---
	paymentHandler := handlers.NewPaymentHandler(paymentService, baseURL+"/api/razorpay")
	profileHandler := handlers.NewProfileHandler(profileService)
	authHandler := handlers.NewAuthHandler(authService)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger
	app.Use(cors.New())

	// --- API Routes ---
	// Group routes under /api/v1
	apiV1 := app.Group("/api/v1")

	// Public routes: auth, donation pages, payment initiation
	authHandler.RegisterRoutes(apiV1)
	paymentHandler.RegisterRoutes(apiV1)

	// Gateway callback lives at the exact URL handed out at initiation
	paymentHandler.RegisterCallbackRoute(app)

	// Protected routes (require JWT authentication)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	profileHandler.RegisterRoutes(protectedRoutes)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start RabbitMQ Consumer in a Goroutine ---
	// Listens for completed-donation events. A real deployment would hang
	// alerting or mail delivery off these.
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for donation events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received donation event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil // Return nil to acknowledge
			}
			if consumerErr := mqClient.ConsumeDonationEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	// RabbitMQ connection close is handled by defer in main
	log.Println("Server gracefully stopped")
}
