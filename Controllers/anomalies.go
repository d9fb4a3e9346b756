package Controllers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Tempus/Models"
)

// AnomalyController serves the detected anomalies and their
// notification audit trail for the dashboard.
type AnomalyController struct {
	DB *gorm.DB
}

func NewAnomalyController(db *gorm.DB) *AnomalyController {
	return &AnomalyController{DB: db}
}

// GetAnomalies lists flagged clock events for a tenant, optionally
// filtered by kind and date range.
func (c *AnomalyController) GetAnomalies(ctx *fiber.Ctx) error {
	tenantID, err := strconv.Atoi(ctx.Query("tenant_id"))
	if err != nil || tenantID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant_id is required"})
	}

	query := c.DB.Preload("Employee").Preload("Device").
		Where("tenant_id = ? AND has_anomaly = ?", tenantID, true)

	if kind := ctx.Query("kind"); kind != "" {
		query = query.Where("anomaly_kind = ?", Models.ParseAnomalyKind(kind))
	}
	if from := ctx.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from date"})
		}
		query = query.Where("timestamp >= ?", t)
	}
	if to := ctx.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to date"})
		}
		query = query.Where("timestamp < ?", t.AddDate(0, 0, 1))
	}

	var events []Models.ClockEvent
	if err := query.Order("timestamp DESC").Find(&events).Error; err != nil {
		log.Println(err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve anomalies"})
	}

	return ctx.JSON(fiber.Map{"count": len(events), "anomalies": events})
}

// GetNotificationLogs lists the manager notifications sent for a tenant.
func (c *AnomalyController) GetNotificationLogs(ctx *fiber.Ctx) error {
	tenantID, err := strconv.Atoi(ctx.Query("tenant_id"))
	if err != nil || tenantID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant_id is required"})
	}

	var logs []Models.NotificationLog
	if err := c.DB.Where("tenant_id = ?", tenantID).Order("sent_at DESC").Find(&logs).Error; err != nil {
		log.Println(err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve notification logs"})
	}

	return ctx.JSON(fiber.Map{"count": len(logs), "notifications": logs})
}
