package main

import (
	"log"

	"fraudguard/internal/app"
)

// @title           FraudGuard API
// @version         1.0
// @description     API для переводов с AI-проверкой транзакций на мошенничество

// @contact.name   API Support

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app, err := app.NewApp()
	if err != nil {
		log.Fatalf("Ошибка создания приложения: %v", err)
	}

	app.BuildAuthLayer()
	if err := app.BuildTransferLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя переводов: %v", err)
	}
	if err := app.BuildScoringLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя скоринга: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Ошибка при работе приложения: %v", err)
	}
}
