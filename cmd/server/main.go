package main

import (
	"log"

	"github.com/joho/godotenv"

	"koshish/internal/app"
)

// @title        PCTE Koshish Planning API
// @version      1.0
// @description  Account lifecycle service: signup, OTP verification, login, password reset, Google login.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}
	app.Run()
}
