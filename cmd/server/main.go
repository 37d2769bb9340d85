// @title           Aliado Laboral API
// @version         1.0
// @description     Backend for a labor-law marketplace: workers file contact requests, lawyers claim and work them via in-app chat, and a nightly SLA engine keeps lawyers responsive (strikes, reassignment, nudges).
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/clog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/huntertut/aliado-laboral-backend/pkg/database"
	"github.com/huntertut/aliado-laboral-backend/pkg/models"

	// Docs
	_ "github.com/huntertut/aliado-laboral-backend/docs"
	"github.com/huntertut/aliado-laboral-backend/internal/admin"
	"github.com/huntertut/aliado-laboral-backend/internal/auth"
	"github.com/huntertut/aliado-laboral-backend/internal/chat"
	"github.com/huntertut/aliado-laboral-backend/internal/requests"
	"github.com/huntertut/aliado-laboral-backend/internal/scheduler"
	"github.com/huntertut/aliado-laboral-backend/internal/sla"
	fiberSwagger "github.com/gofiber/swagger"
	"github.com/google/uuid"
)

const systemEmail = "system@aliadolaboral.mx"

// ensureSystemUser finds or creates the service identity that authors
// synthetic chat messages.
func ensureSystemUser(db *gorm.DB) uuid.UUID {
	var u models.User
	err := db.Where("email = ?", systemEmail).First(&u).Error
	if err == nil {
		return u.ID
	}
	// Random password hash; the login handler refuses system users anyway.
	hash, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	u = models.User{
		Email:        systemEmail,
		PasswordHash: string(hash),
		Role:         models.RoleSystem,
		FullName:     "Aliado Laboral",
	}
	if err := db.Create(&u).Error; err != nil {
		log.Fatal("creating system user:", err)
	}
	return u.ID
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(clog.New(clog.WithColor(true)))
	slog.SetDefault(logger)

	db := database.Init()
	if err := db.AutoMigrate(
		&models.User{}, &models.Lawyer{}, &models.LawyerProfile{},
		&models.ContactRequest{}, &models.ChatMessage{},
		&models.AdminAlert{}, &models.RequestHistory{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	systemID := ensureSystemUser(db)

	// SLA engines
	sweeper := sla.NewSweeper(db, logger, systemID)
	nudger := sla.NewNudger(db, logger, systemID)

	// Scheduler: redis lock in multi-instance deployments, local lock
	// when REDIS_ADDR is not configured.
	var lock scheduler.RunLock
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		lock = scheduler.NewRedisLock(addr, os.Getenv("REDIS_PASSWORD"), redisDB)
	} else {
		lock = scheduler.NewLocalLock()
	}
	sched := scheduler.New(lock, logger)
	if err := sched.Add("sla-sweep", envOr("SLA_SWEEP_SCHEDULE", "0 2 * * *"), func(ctx context.Context) error {
		_, err := sweeper.Run(ctx)
		return err
	}); err != nil {
		log.Fatal("scheduling sla sweep:", err)
	}
	if err := sched.Add("nudge-scan", envOr("NUDGE_SCAN_SCHEDULE", "0 3 * * *"), func(ctx context.Context) error {
		_, err := nudger.Run(ctx)
		return err
	}); err != nil {
		log.Fatal("scheduling nudge scan:", err)
	}
	sched.Start()
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	// Auth
	authH := auth.NewHandler(db)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", auth.RequireAuth(), authH.Me)

	// Contact requests
	reqH := requests.NewHandler(db)
	// Worker
	api.Post("/requests", auth.RequireAuth(), auth.RequireRole("worker"), reqH.Create)
	api.Get("/requests/mine", auth.RequireAuth(), auth.RequireRole("worker"), reqH.ListMine)
	// Lawyer
	api.Get("/requests/pool", auth.RequireAuth(), auth.RequireRole("lawyer"), reqH.Pool)
	api.Post("/requests/:id/accept", auth.RequireAuth(), auth.RequireRole("lawyer"), reqH.Accept)
	api.Post("/requests/:id/reject", auth.RequireAuth(), auth.RequireRole("lawyer"), reqH.Reject)
	api.Patch("/requests/:id/crm", auth.RequireAuth(), auth.RequireRole("lawyer"), reqH.UpdateCRM)

	// Chat
	chatH := chat.NewHandler(db)
	api.Post("/requests/:id/messages", auth.RequireAuth(), chatH.Send)
	api.Get("/requests/:id/messages", auth.RequireAuth(), chatH.List)

	// Admin
	adminH := admin.NewHandler(db, sweeper, nudger)
	api.Get("/admin/alerts", auth.RequireAuth(), auth.RequireRole("admin"), adminH.ListAlerts)
	api.Post("/admin/alerts/:id/dismiss", auth.RequireAuth(), auth.RequireRole("admin"), adminH.DismissAlert)
	api.Post("/admin/lawyers/:id/reinstate", auth.RequireAuth(), auth.RequireRole("admin"), adminH.ReinstateLawyer)
	api.Post("/admin/sla/run", auth.RequireAuth(), auth.RequireRole("admin"), adminH.RunSLA)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Println("Server running on :" + port)
	log.Fatal(app.Listen(":" + port))
}
