package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/lib/pq"

	"koshish/internal/config"
	"koshish/internal/handlers"
	"koshish/internal/models"
	"koshish/internal/pdf"
	"koshish/internal/repositories"
	"koshish/internal/routes"
	"koshish/internal/services"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "koshish/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Repos ===
	accountRepo := repositories.NewAccountRepository(db)

	// === Services ===
	authService := services.NewAuthService([]byte(cfg.JWT.Secret))
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	// optional ops alerts, disabled when the token is empty
	var alerts *services.TelegramService
	if cfg.Telegram.BotToken != "" {
		alerts = services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	accountService := services.NewAccountService(accountRepo, emailService, authService, alerts)

	// === Handlers ===
	exporter := pdf.NewAccountExporter()
	userHandler := handlers.NewUserHandler(accountService, exporter)
	authHandler := handlers.NewAuthHandler(accountService)
	verifyHandler := handlers.NewVerifyHandler(accountService)

	// === Gin ===
	registerValidations()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, userHandler, authHandler, verifyHandler, []byte(cfg.JWT.Secret))

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("usertype", func(fl validator.FieldLevel) bool {
			return models.UserType(fl.Field().String()).Valid()
		})
	}
}
