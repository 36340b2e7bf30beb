package main

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chargeops/dispatch/cache"
	"github.com/chargeops/dispatch/clients"
	"github.com/chargeops/dispatch/config"
	"github.com/chargeops/dispatch/config/db"
	redisclient "github.com/chargeops/dispatch/config/redis"
	"github.com/chargeops/dispatch/controllers/assignment_controller"
	"github.com/chargeops/dispatch/controllers/booking_controller"
	"github.com/chargeops/dispatch/controllers/cancel_book_controller"
	"github.com/chargeops/dispatch/controllers/transition_controller"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/middlewares/cors"
	"github.com/chargeops/dispatch/models/shared_models"
	"github.com/chargeops/dispatch/mq"
	"github.com/chargeops/dispatch/notifications"
	"github.com/chargeops/dispatch/routes"
	"github.com/chargeops/dispatch/utils/mail"
)

//go:embed templates/email/*
var embeddedEmailTemplates embed.FS

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

func main() {
	if err := shared_models.ValidateChains(); err != nil {
		logger.ErrorLogger.Fatalf("Invalid status chain configuration: %v", err)
	}

	db.Connect()
	defer db.Close()

	redis := redisclient.GetRedisClient()
	defer redisclient.CloseRedis()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	mail.InitTemplates(embeddedEmailTemplates)
	logger.InfoLogger.Info("Application: Email templates initialized.")

	var notifier notifications.Notifier
	var publisher *mq.Publisher
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		var err error
		publisher, err = mq.NewPublisher(amqpURL, config.GetEnv("AMQP_EXCHANGE", "dispatch.notifications"))
		if err != nil {
			logger.ErrorLogger.Fatalf("Failed to connect to message bus: %v", err)
		}
		defer publisher.Close()
		notifier = notifications.NewAMQPNotifier(publisher)
	} else if os.Getenv("SMTP_HOST") != "" {
		logger.WarnLogger.Warn("AMQP_URL not set, delivering emails directly over SMTP")
		notifier = notifications.NewMailNotifier()
	} else {
		logger.WarnLogger.Warn("AMQP_URL and SMTP_HOST not set, notifications disabled")
		notifier = notifications.NopNotifier{}
	}

	invoiceClient := clients.NewInvoiceClient(
		config.GetEnv("INVOICE_SERVICE_URL", "http://localhost:8090"),
		os.Getenv("INVOICE_SERVICE_API_KEY"),
	)
	paymentClient := clients.NewPaymentClient(
		os.Getenv("RAZORPAY_KEY_ID"),
		os.Getenv("RAZORPAY_KEY_SECRET"),
	)
	directoryClient := clients.NewDirectoryClient(
		config.GetEnv("DIRECTORY_SERVICE_URL", "http://localhost:8091"),
	)

	store := cache.NewRedisStore(redis)

	transitionService := transition_controller.NewTransitionService(db.DB, notifier, invoiceClient, paymentClient, directoryClient)
	assignmentService := assignment_controller.NewAssignmentService(db.DB, notifier, transitionService)
	bookingService := booking_controller.NewBookingService(db.DB, store, notifier)
	cancelService := cancel_book_controller.NewCancelBookService(db.DB, notifier)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware())

	routes.RegisterBookingRoutes(r, bookingService)
	routes.RegisterAssignmentRoutes(r, assignmentService)
	routes.RegisterTransitionRoutes(r, transitionService)
	routes.RegisterCancelBookRoutes(r, cancelService)
	routes.RegisterSlotRoutes(r, db.DB, store)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok from dispatch service"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		fmt.Printf("Go Server listening on :%s\n", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed to listen: %v\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Shutting down Go server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("Go Server forced to shutdown: %v\n", err)
	}

	fmt.Println("Go Server exited gracefully.")
}
