package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/config"
	"github.com/kiwio/print-broker-api/controllers"
	"github.com/kiwio/print-broker-api/middleware"
	"github.com/kiwio/print-broker-api/models"
	"github.com/kiwio/print-broker-api/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Basic logging
	log.Println("Starting Print Broker API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.Channel{}, &models.Message{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Connect to redis for the live update feed
	if err := config.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	// Initialize services
	blob, err := services.InitBlobStore()
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	services.InitOrderService(db, blob)
	services.InitChatService(db, config.GetRedis())

	router := setupRouter(cfg)

	// Start server
	port := ":8080"
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the full route table. Split out so integration tests
// can run the same router against test doubles.
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(middleware.PrometheusMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.EnsureValidToken(cfg)

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		users := v1.Group("/users", auth)
		{
			users.POST("", controllers.CreateUser)
			users.GET("/me", controllers.GetMyProfile)
			users.PUT("/me", controllers.UpdateMyProfile)
		}

		upload := v1.Group("/upload", auth)
		{
			upload.POST("/model", controllers.UploadModel)
			upload.POST("/preview", controllers.UploadPreview)
			upload.GET("/preview/:file_id", controllers.GetPreviewURL)
		}

		order := v1.Group("/order", auth)
		{
			order.POST("/new", controllers.CreateOrder)
			order.GET("/list", controllers.ListOrders)
			order.GET("/:order_id", controllers.GetOrder)
			order.POST("/:order_id/cancel", controllers.CancelOrder)
			order.GET("/:order_id/product_image", controllers.GetProductImage)
		}

		manufacturer := v1.Group("/manufacturer", auth)
		{
			manufacturer.GET("/unassigned_orders", controllers.ListUnassignedOrders)
			manufacturer.GET("/adopted_orders", controllers.ListAdoptedOrders)
			manufacturer.POST("/reject_order/:order_id", controllers.RejectOrder)
			manufacturer.POST("/assign_order/:order_id", controllers.AssignOrder)
			manufacturer.GET("/order/:order_id", controllers.GetManufacturerOrder)
			manufacturer.POST("/order/:order_id/start_production", controllers.StartProduction)
			manufacturer.POST("/order/:order_id/complete_production", controllers.CompleteProduction)
			manufacturer.POST("/order/:order_id/upload_image", controllers.UploadProductImage)
			manufacturer.POST("/order/:order_id/finalize", controllers.FinalizeOrder)
			manufacturer.GET("/order/:order_id/download_file", controllers.DownloadModelFile)
		}

		channel := v1.Group("/channel", auth)
		{
			channel.POST("/:channel", controllers.EnsureChannel)
			channel.DELETE("/:channel", controllers.DeleteChannel)
			channel.GET("/:channel/stats", controllers.GetChannelStats)
			channel.GET("/:channel/messages", controllers.GetMessages)
			channel.POST("/:channel/messages", controllers.SendMessage)
			channel.PUT("/:channel/messages/:message_id", controllers.EditMessage)
			channel.DELETE("/:channel/messages/:message_id", controllers.DeleteMessage)
		}

		v1.GET("/stream/:channel", auth, controllers.StreamChannel)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Print Broker API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
