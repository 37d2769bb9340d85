package chat

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/huntertut/aliado-laboral-backend/internal/auth"
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

func injectAuth(userID uuid.UUID, role models.Role) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", string(role))
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID, role models.Role) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(injectAuth(userID, role))
	app.Post("/api/requests/:id/messages", h.Send)
	app.Get("/api/requests/:id/messages", h.List)
	return app
}

type convSeed struct {
	WorkerID     uuid.UUID
	LawyerUserID uuid.UUID
	RequestID    uuid.UUID
}

// seedConversation inserts worker, lawyer, and one accepted request
// assigned to the lawyer's profile.
func seedConversation(t *testing.T, db *gorm.DB) convSeed {
	t.Helper()

	wk := models.User{ID: uuid.New(), Email: "wk_" + uuid.NewString()[:8] + "@x.mx", PasswordHash: "x", Role: models.RoleWorker}
	if err := db.Create(&wk).Error; err != nil {
		t.Fatal(err)
	}
	lu := models.User{ID: uuid.New(), Email: "lw_" + uuid.NewString()[:8] + "@x.mx", PasswordHash: "x", Role: models.RoleLawyer, FullName: "Lic. Prueba"}
	if err := db.Create(&lu).Error; err != nil {
		t.Fatal(err)
	}
	lw := models.Lawyer{ID: uuid.New(), UserID: lu.ID, Status: models.LawyerActive}
	if err := db.Create(&lw).Error; err != nil {
		t.Fatal(err)
	}
	lp := models.LawyerProfile{ID: uuid.New(), LawyerID: lw.ID, ProfessionalName: "Lic. Prueba", ReputationScore: 50}
	if err := db.Create(&lp).Error; err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	cr := models.ContactRequest{
		ID:              uuid.New(),
		WorkerID:        wk.ID,
		LawyerProfileID: &lp.ID,
		Status:          models.RequestAccepted,
		CRMStatus:       models.CRMNew,
		SubStatus:       models.SubChatActive,
		Category:        "despido",
		Description:     "Caso de prueba con suficiente detalle para el intake.",
		AcceptedAt:      &now,
	}
	if err := db.Create(&cr).Error; err != nil {
		t.Fatal(err)
	}
	return convSeed{WorkerID: wk.ID, LawyerUserID: lu.ID, RequestID: cr.ID}
}

func getRequest(t *testing.T, db *gorm.DB, id uuid.UUID) models.ContactRequest {
	t.Helper()
	var cr models.ContactRequest
	if err := db.First(&cr, "id = ?", id).Error; err != nil {
		t.Fatal(err)
	}
	return cr
}

func send(t *testing.T, app *fiber.App, requestID uuid.UUID, content string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/requests/"+requestID.String()+"/messages",
		strings.NewReader(`{"content":"`+content+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode
}

/* ============================================================================
   Tests — denormalization, activity stamps, permissions
   ============================================================================ */

// A worker message flips the ball to the lawyer's court and bumps the
// lawyer's unread counter.
func Test_Send_WorkerMessage_UpdatesDenormFields(t *testing.T) {
	db := openTestDB(t)
	seed := seedConversation(t, db)

	h := NewHandler(db)
	app := newTestApp(h, seed.WorkerID, models.RoleWorker)

	if code := send(t, app, seed.RequestID, "Hola, tengo una duda sobre mi caso"); code != 201 {
		t.Fatalf("status %d", code)
	}

	cr := getRequest(t, db, seed.RequestID)
	if cr.SubStatus != models.SubWaitingLawyerResponse {
		t.Fatalf("subStatus = %s, want waiting_lawyer_response", cr.SubStatus)
	}
	if cr.UnreadCountLawyer != 1 || cr.UnreadCountWorker != 0 {
		t.Fatalf("unread counters = %d/%d, want 1 lawyer / 0 worker",
			cr.UnreadCountLawyer, cr.UnreadCountWorker)
	}
	if cr.LastWorkerActivityAt == nil {
		t.Fatal("lastWorkerActivityAt not stamped")
	}
	if cr.LastLawyerActivityAt != nil {
		t.Fatal("a worker message must not count as lawyer activity")
	}
	if cr.LastMessageContent != "Hola, tengo una duda sobre mi caso" {
		t.Fatalf("lastMessageContent = %q", cr.LastMessageContent)
	}
}

// A lawyer reply resets the staleness clock for the SLA sweep.
func Test_Send_LawyerReply_StampsLawyerActivity(t *testing.T) {
	db := openTestDB(t)
	seed := seedConversation(t, db)

	h := NewHandler(db)
	app := newTestApp(h, seed.LawyerUserID, models.RoleLawyer)

	if code := send(t, app, seed.RequestID, "Revisé tu expediente, te comento mañana"); code != 201 {
		t.Fatalf("status %d", code)
	}

	cr := getRequest(t, db, seed.RequestID)
	if cr.SubStatus != models.SubWaitingWorkerResponse {
		t.Fatalf("subStatus = %s, want waiting_worker_response", cr.SubStatus)
	}
	if cr.LastLawyerActivityAt == nil || time.Since(*cr.LastLawyerActivityAt) > time.Minute {
		t.Fatal("lastLawyerActivityAt not stamped")
	}
	if cr.UnreadCountWorker != 1 {
		t.Fatalf("unreadCountWorker = %d, want 1", cr.UnreadCountWorker)
	}
}

// Reading the thread clears only the reader's counter.
func Test_List_ClearsReaderUnreadCounter(t *testing.T) {
	db := openTestDB(t)
	seed := seedConversation(t, db)
	h := NewHandler(db)

	workerApp := newTestApp(h, seed.WorkerID, models.RoleWorker)
	lawyerApp := newTestApp(h, seed.LawyerUserID, models.RoleLawyer)

	if code := send(t, workerApp, seed.RequestID, "Primer mensaje"); code != 201 {
		t.Fatalf("send: status %d", code)
	}
	if code := send(t, lawyerApp, seed.RequestID, "Respuesta"); code != 201 {
		t.Fatalf("send: status %d", code)
	}

	cr := getRequest(t, db, seed.RequestID)
	if cr.UnreadCountWorker != 1 || cr.UnreadCountLawyer != 1 {
		t.Fatalf("unread counters = %d/%d before read", cr.UnreadCountWorker, cr.UnreadCountLawyer)
	}

	resp, err := workerApp.Test(httptest.NewRequest("GET", "/api/requests/"+seed.RequestID.String()+"/messages", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("list: status %d", resp.StatusCode)
	}
	var msgs []models.ChatMessage
	_ = json.NewDecoder(resp.Body).Decode(&msgs)
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}

	cr = getRequest(t, db, seed.RequestID)
	if cr.UnreadCountWorker != 0 {
		t.Fatalf("worker counter should be cleared, got %d", cr.UnreadCountWorker)
	}
	if cr.UnreadCountLawyer != 1 {
		t.Fatalf("lawyer counter must be untouched, got %d", cr.UnreadCountLawyer)
	}
}

// Outsiders get 403, and a chat on a non-accepted request is refused.
func Test_Send_PermissionsAndLifecycle(t *testing.T) {
	db := openTestDB(t)
	seed := seedConversation(t, db)
	h := NewHandler(db)

	outsider := models.User{ID: uuid.New(), Email: "out_" + uuid.NewString()[:8] + "@x.mx", PasswordHash: "x", Role: models.RoleWorker}
	if err := db.Create(&outsider).Error; err != nil {
		t.Fatal(err)
	}
	outsiderApp := newTestApp(h, outsider.ID, models.RoleWorker)
	if code := send(t, outsiderApp, seed.RequestID, "No deberia poder escribir"); code != 403 {
		t.Fatalf("outsider send: status %d, want 403", code)
	}

	// Close the case; the chat goes read-only.
	if err := db.Model(&models.ContactRequest{}).
		Where("id = ?", seed.RequestID).
		Updates(map[string]any{"status": models.RequestFinalized, "crm_status": models.CRMClosedWon}).Error; err != nil {
		t.Fatal(err)
	}
	workerApp := newTestApp(h, seed.WorkerID, models.RoleWorker)
	if code := send(t, workerApp, seed.RequestID, "Un mensaje después del cierre"); code != 409 {
		t.Fatalf("send on closed case: status %d, want 409", code)
	}
}
