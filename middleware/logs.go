package middleware

import (
	"Tempus/Models"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one line per request with method, path, status,
// latency and the authenticated user when present.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)

		var userStr string
		if user := c.Locals("user"); user != nil {
			if userStruct, ok := user.(Models.User); ok {
				userStr = fmt.Sprintf(" user:%d(%s)", userStruct.ID, userStruct.Name)
			}
		}

		log.Printf(
			"[%s] %s %s %d %s %s%s",
			start.Format("2006-01-02 15:04:05"),
			c.Method(),
			c.Path(),
			c.Response().StatusCode(),
			latency,
			c.IP(),
			userStr,
		)

		return err
	}
}
