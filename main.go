package main

import (
	"log"

	"github.com/joho/godotenv"

	"Tempus/Compliance"
	"Tempus/CronJobs"
	"Tempus/Detection"
	"Tempus/FiberConfig"
	"Tempus/Models"
	"Tempus/Slack"
	"Tempus/config"
	"Tempus/email"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment")
	}

	Models.Connect()

	logger := config.GetLogger()
	mailer := email.NewSMTPMailer(Models.LoadEmailConfig())

	detector := Detection.NewMissingCheckoutDetector(Models.DB, logger)
	notifier := Detection.NewAnomalyNotifier(Models.DB, logger, mailer)
	engine := Compliance.NewEngine(Models.DB, logger)

	jobs := CronJobs.NewAttendanceJobs(detector, notifier, engine, Slack.NewCompliancePoster(), logger, false)
	if err := jobs.Start(); err != nil {
		log.Fatal("Failed to start attendance jobs:", err)
	}
	defer jobs.Stop()

	FiberConfig.FiberConfig(Models.DB, engine, jobs)
}
