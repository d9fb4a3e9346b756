package Controllers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"Tempus/Compliance"
)

// ComplianceController exposes the on-demand compliance evaluation
type ComplianceController struct {
	Engine *Compliance.Engine
}

func NewComplianceController(engine *Compliance.Engine) *ComplianceController {
	return &ComplianceController{Engine: engine}
}

type evaluateRequest struct {
	TenantID  uint   `json:"tenant_id"`
	StartDate string `json:"start_date"` // "2006-01-02"
	EndDate   string `json:"end_date"`
}

// Evaluate runs the four labor rules over the requested range and
// returns the full alert list. Read-only, nothing is persisted.
func (c *ComplianceController) Evaluate(ctx *fiber.Ctx) error {
	var input evaluateRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if input.TenantID == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant_id is required"})
	}

	from, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date, expected YYYY-MM-DD"})
	}
	to, err := time.Parse("2006-01-02", input.EndDate)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date, expected YYYY-MM-DD"})
	}

	alerts, err := c.Engine.Evaluate(input.TenantID, from, to)
	if err != nil {
		log.Println(err)
		if strings.Contains(err.Error(), "invalid date range") {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to evaluate compliance rules"})
	}

	return ctx.JSON(fiber.Map{
		"tenant_id":  input.TenantID,
		"start_date": input.StartDate,
		"end_date":   input.EndDate,
		"count":      len(alerts),
		"alerts":     alerts,
	})
}
