package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Tempus/CronJobs"
)

// JobController lets admins trigger the batch jobs outside their
// schedule. The runs are asynchronous; overlap with a scheduled run is
// handled by the jobs' own guards.
type JobController struct {
	Jobs *CronJobs.AttendanceJobs
}

func NewJobController(jobs *CronJobs.AttendanceJobs) *JobController {
	return &JobController{Jobs: jobs}
}

func (c *JobController) RunDetection(ctx *fiber.Ctx) error {
	go c.Jobs.RunDetectionNow()
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "detection run triggered"})
}

func (c *JobController) RunNotifier(ctx *fiber.Ctx) error {
	go c.Jobs.RunNotifierNow()
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "notifier run triggered"})
}

func (c *JobController) RunComplianceScan(ctx *fiber.Ctx) error {
	go c.Jobs.RunComplianceScanNow()
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "compliance scan triggered"})
}
