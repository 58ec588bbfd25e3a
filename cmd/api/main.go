package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/azusa-tani/kajishift-backend/internal/booking"
	"github.com/azusa-tani/kajishift-backend/internal/database"
	"github.com/azusa-tani/kajishift-backend/internal/events"
	"github.com/azusa-tani/kajishift-backend/internal/handlers"
	"github.com/azusa-tani/kajishift-backend/internal/middleware"
	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Event pipeline: the booking service publishes onto Redis streams,
	// the dispatcher consumes them and fans out notifications
	publisher, err := events.NewRedisPublisher(services.RedisClient)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        services.RedisClient,
		ConsumerGroup: "booking_dispatcher",
	}, watermill.NewStdLogger(false, false))
	if err != nil {
		log.Fatalf("Failed to create event subscriber: %v", err)
	}

	dispatcher, err := events.NewDispatcher(db, hub, subscriber)
	if err != nil {
		log.Fatalf("Failed to create event dispatcher: %v", err)
	}
	go func() {
		if err := dispatcher.Run(context.Background()); err != nil {
			log.Fatalf("Event dispatcher stopped: %v", err)
		}
	}()

	// Core booking service
	bookingService := booking.NewService(db, booking.NewDirectory(db), publisher)

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.Use(middleware.RateLimitMiddleware())

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		auth.Use(middleware.AuthRateLimitMiddleware())
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// Public worker directory
		workers := api.Group("/workers")
		{
			workers.GET("", handlers.GetWorkers(db))
			workers.GET("/:id", handlers.GetWorker(db))
			workers.GET("/:id/reviews", handlers.GetWorkerReviews(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.HandleWebSocket(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
			}

			// Booking lifecycle routes
			bookings := protected.Group("/bookings")
			{
				bookings.POST("", handlers.CreateBooking(bookingService))
				bookings.GET("", handlers.GetBookings(bookingService))
				bookings.GET("/:id", handlers.GetBooking(bookingService))
				bookings.PUT("/:id", handlers.UpdateBooking(bookingService))
				bookings.DELETE("/:id", handlers.CancelBooking(bookingService))
				bookings.POST("/:id/accept", handlers.AcceptBooking(bookingService))
				bookings.POST("/:id/reject", handlers.RejectBooking(bookingService))
				bookings.POST("/:id/complete", handlers.CompleteBooking(bookingService))
			}

			// Payment routes
			payments := protected.Group("/payments")
			{
				payments.POST("", handlers.ProcessPayment(db, hub))
				payments.GET("", handlers.GetPayments(db))
			}

			// Review routes
			reviews := protected.Group("/reviews")
			{
				reviews.POST("", handlers.CreateReview(db, hub))
			}

			// Notification routes
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.GetNotifications(db))
				notifications.PUT("/:id/read", handlers.MarkNotificationRead(db))
				notifications.PUT("/read-all", handlers.MarkAllNotificationsRead(db))
			}

			// Admin routes
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(string(models.RoleAdmin)))
			{
				admin.PUT("/workers/:id/approval", handlers.ApproveWorker(db, hub))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
