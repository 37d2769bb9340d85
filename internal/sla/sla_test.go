package sla

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/huntertut/aliado-laboral-backend/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

// openTestDB loads TEST_DATABASE_URL, opens a real Postgres connection,
// runs migrations, and registers a cleanup that truncates test tables after run.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Fatal("TEST_DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Lawyer{}, &models.LawyerProfile{},
		&models.ContactRequest{}, &models.ChatMessage{},
		&models.AdminAlert{}, &models.RequestHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Truncate AFTER each test (data survives within a single test).
	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	request_histories,
	admin_alerts,
	chat_messages,
	contact_requests,
	lawyer_profiles,
	lawyers,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

// quietLog discards engine logging during tests.
func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedSystemUser inserts the service identity the engines stamp as actor.
func seedSystemUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	u := models.User{
		ID:           uuid.New(),
		Email:        "system_" + uuid.NewString()[:8] + "@x.mx",
		PasswordHash: "x",
		Role:         models.RoleSystem,
		FullName:     "Aliado Laboral",
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return u.ID
}

type lawyerSeed struct {
	UserID    uuid.UUID
	LawyerID  uuid.UUID
	ProfileID uuid.UUID
}

// seedLawyer inserts a user + lawyer + profile with the given strikes.
func seedLawyer(t *testing.T, db *gorm.DB, strikes int) lawyerSeed {
	t.Helper()
	u := models.User{
		ID:           uuid.New(),
		Email:        "lw_" + uuid.NewString()[:8] + "@x.mx",
		PasswordHash: "x",
		Role:         models.RoleLawyer,
		FullName:     "Lic. Prueba",
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	lw := models.Lawyer{ID: uuid.New(), UserID: u.ID, Strikes: strikes, Status: models.LawyerActive}
	if err := db.Create(&lw).Error; err != nil {
		t.Fatal(err)
	}
	lp := models.LawyerProfile{ID: uuid.New(), LawyerID: lw.ID, ProfessionalName: "Lic. Prueba", ReputationScore: 50}
	if err := db.Create(&lp).Error; err != nil {
		t.Fatal(err)
	}
	return lawyerSeed{UserID: u.ID, LawyerID: lw.ID, ProfileID: lp.ID}
}

// seedWorker inserts a worker user.
func seedWorker(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	u := models.User{
		ID:           uuid.New(),
		Email:        "wk_" + uuid.NewString()[:8] + "@x.mx",
		PasswordHash: "x",
		Role:         models.RoleWorker,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return u.ID
}

type requestOpt func(*models.ContactRequest)

func withCRM(s models.CRMStatus) requestOpt {
	return func(cr *models.ContactRequest) { cr.CRMStatus = s }
}

func withSubStatus(s models.SubStatus) requestOpt {
	return func(cr *models.ContactRequest) { cr.SubStatus = s }
}

func withAcceptedAgo(d time.Duration, now time.Time) requestOpt {
	return func(cr *models.ContactRequest) { cr.AcceptedAt = tp(now.Add(-d)) }
}

func withLawyerActivityAgo(d time.Duration, now time.Time) requestOpt {
	return func(cr *models.ContactRequest) { cr.LastLawyerActivityAt = tp(now.Add(-d)) }
}

func withNoProfile() requestOpt {
	return func(cr *models.ContactRequest) { cr.LawyerProfileID = nil }
}

// seedAccepted inserts an accepted request assigned to the given profile.
// Defaults: CRM NEW, chat_active, accepted just now.
func seedAccepted(t *testing.T, db *gorm.DB, workerID uuid.UUID, profileID uuid.UUID, now time.Time, opts ...requestOpt) uuid.UUID {
	t.Helper()
	cr := models.ContactRequest{
		ID:                   uuid.New(),
		WorkerID:             workerID,
		LawyerProfileID:      &profileID,
		Status:               models.RequestAccepted,
		CRMStatus:            models.CRMNew,
		SubStatus:            models.SubChatActive,
		Category:             "despido",
		Description:          "Caso de prueba con suficiente detalle para el intake.",
		AcceptedAt:           tp(now),
		LastLawyerActivityAt: tp(now),
	}
	for _, opt := range opts {
		opt(&cr)
	}
	if err := db.Create(&cr).Error; err != nil {
		t.Fatal(err)
	}
	return cr.ID
}

// backdateUpdatedAt rewrites updated_at directly; Create always stamps it
// with the wall clock.
func backdateUpdatedAt(t *testing.T, db *gorm.DB, requestID uuid.UUID, ts time.Time) {
	t.Helper()
	if err := db.Model(&models.ContactRequest{}).
		Where("id = ?", requestID).
		UpdateColumn("updated_at", ts).Error; err != nil {
		t.Fatal(err)
	}
}

// reloadRequest fetches the current row state.
func reloadRequest(t *testing.T, db *gorm.DB, id uuid.UUID) models.ContactRequest {
	t.Helper()
	var cr models.ContactRequest
	if err := db.First(&cr, "id = ?", id).Error; err != nil {
		t.Fatal(err)
	}
	return cr
}

func reloadLawyer(t *testing.T, db *gorm.DB, id uuid.UUID) models.Lawyer {
	t.Helper()
	var lw models.Lawyer
	if err := db.First(&lw, "id = ?", id).Error; err != nil {
		t.Fatal(err)
	}
	return lw
}
