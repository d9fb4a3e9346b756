package FiberConfig

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"Tempus/Compliance"
	"Tempus/Controllers"
	"Tempus/CronJobs"
	"Tempus/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, engine *Compliance.Engine, jobs *CronJobs.AttendanceJobs) {
	// Initialize handlers
	complianceController := Controllers.NewComplianceController(engine)
	anomalyController := Controllers.NewAnomalyController(db)
	jobController := Controllers.NewJobController(jobs)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API group
	api := app.Group("/api")

	// Anomaly routes
	anomalies := api.Group("/anomalies", middleware.Verify(1))
	anomalies.Get("/", anomalyController.GetAnomalies)
	anomalies.Get("/notifications", anomalyController.GetNotificationLogs)

	// Compliance routes
	compliance := api.Group("/compliance", middleware.Verify(2))
	compliance.Post("/evaluate", complianceController.Evaluate)

	// Manual job triggers
	jobRoutes := api.Group("/jobs", middleware.Verify(3))
	jobRoutes.Post("/detection/run", jobController.RunDetection)
	jobRoutes.Post("/notifier/run", jobController.RunNotifier)
	jobRoutes.Post("/compliance/run", jobController.RunComplianceScan)
}

func FiberConfig(db *gorm.DB, engine *Compliance.Engine, jobs *CronJobs.AttendanceJobs) {
	fmt.Println("Server Up...")
	app := fiber.New()
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression, // 2
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, db, engine, jobs)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Fatal(app.Listen(":" + port))
}
