package requests

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huntertut/aliado-laboral-backend/internal/auth"
	"github.com/huntertut/aliado-laboral-backend/pkg/models"
	"github.com/huntertut/aliado-laboral-backend/pkg/sanitize"
	"github.com/huntertut/aliado-laboral-backend/pkg/utils"
	"github.com/huntertut/aliado-laboral-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

type CreateRequest struct {
	Category    string `json:"category" validate:"required,category"`
	Description string `json:"description" validate:"required,min=20,max=4000"`
}

type RequestListItem struct {
	ID        uuid.UUID            `json:"id"`
	Category  string               `json:"category"`
	Status    models.RequestStatus `json:"status"`
	SubStatus models.SubStatus     `json:"sub_status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type PoolItem struct {
	ID             uuid.UUID `json:"id"`
	Category       string    `json:"category"`
	Preview        string    `json:"preview"`
	RejectionCount int       `json:"rejection_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

// lawyerFor loads the lawyer account + profile behind an authenticated user.
func lawyerFor(db *gorm.DB, userID string) (*models.Lawyer, error) {
	var lw models.Lawyer
	if err := db.Preload("Profile").Where("user_id = ?", userID).First(&lw).Error; err != nil {
		return nil, err
	}
	return &lw, nil
}

/* =============================== Intake ================================= */

// @Summary      Create contact request
// @Description  Worker submits a new request for legal help
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateRequest  true  "Request payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /requests [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	workerUUID, _ := uuid.Parse(auth.MustUserID(c))
	cr := models.ContactRequest{
		WorkerID:    workerUUID,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Description: strings.TrimSpace(in.Description),
		Status:      models.RequestPending,
		CRMStatus:   models.CRMNew,
		SubStatus:   models.SubWaitingLawyer,
	}
	if err := h.db.Create(&cr).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	utils.LogRequestHistory(c.Context(), h.db, cr.ID, workerUUID, "created",
		"", models.RequestPending, "")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": cr.ID})
}

// @Summary      List my requests
// @Description  Worker lists their own requests (paginated)
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /requests/mine [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	workerID := auth.MustUserID(c)
	page, size := parsePage(c)

	q := h.db.Model(&models.ContactRequest{}).Where("worker_id = ?", workerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []RequestListItem
	if err := q.Order("updated_at DESC").
		Offset((page - 1) * size).Limit(size).
		Scan(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []RequestListItem{}
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": rows,
	})
}

/* ============================== Public pool ============================= */

// @Summary      Browse the public pool
// @Description  Lawyer browses pending requests (PII-redacted previews)
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        category  query string false "category"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /requests/pool [get]
func (h *Handler) Pool(c *fiber.Ctx) error {
	page, size := parsePage(c)
	category := strings.TrimSpace(c.Query("category"))

	dbq := h.db.Model(&models.ContactRequest{}).
		Where("status = ? AND lawyer_profile_id IS NULL", models.RequestPending)
	if category != "" {
		dbq = dbq.Where("category = ?", category)
	}

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var list []models.ContactRequest
	if err := dbq.Order("created_at ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]PoolItem, 0, len(list))
	for _, cr := range list {
		items = append(items, PoolItem{
			ID:             cr.ID,
			Category:       cr.Category,
			Preview:        sanitize.Summary(sanitize.RedactPII(cr.Description), 240),
			RejectionCount: cr.RejectionCount,
			CreatedAt:      cr.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": items,
	})
}

/* ============================ Accept / Reject =========================== */

// @Summary      Accept a request
// @Description  Lawyer claims a pending request; opens the chat with a welcome message
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "request id (uuid)"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  models.ErrorResponse  "suspended lawyer"
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "already claimed"
// @Router       /requests/{id}/accept [post]
func (h *Handler) Accept(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}

	lw, err := lawyerFor(h.db, auth.MustUserID(c))
	if err != nil || lw.Profile == nil {
		return fiber.ErrNotFound
	}
	// Tolerancia cero: suspended lawyers take no new cases.
	if lw.Status == models.LawyerSuspended {
		return fiber.NewError(fiber.StatusForbidden, "account suspended")
	}

	now := time.Now()
	welcome := "¡Hola! He aceptado tu solicitud. ¿En qué puedo ayudarte?"

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Lock the row so two lawyers can't claim the same case.
		var cr models.ContactRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cr, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.ErrNotFound
			}
			return fiber.ErrInternalServerError
		}
		if cr.Status != models.RequestPending || cr.LawyerProfileID != nil {
			return fiber.NewError(fiber.StatusConflict, "request already claimed")
		}
		if !models.CanTransition(cr.Status, models.RequestAccepted) {
			return fiber.NewError(fiber.StatusConflict, "request cannot be accepted")
		}

		if err := tx.Model(&cr).Updates(map[string]any{
			"status":                  models.RequestAccepted,
			"crm_status":              models.CRMNew,
			"sub_status":              models.SubChatActive,
			"lawyer_profile_id":       lw.Profile.ID,
			"accepted_at":             now,
			"last_lawyer_activity_at": now,
			"last_message_at":         now,
			"last_message_content":    welcome,
			"unread_count_worker":     1,
		}).Error; err != nil {
			return fiber.ErrInternalServerError
		}

		if err := tx.Create(&models.ChatMessage{
			RequestID: cr.ID,
			SenderID:  lw.UserID,
			Content:   welcome,
			Type:      models.MessageText,
		}).Error; err != nil {
			return fiber.ErrInternalServerError
		}

		utils.LogRequestHistory(c.Context(), tx, cr.ID, lw.UserID, "accepted",
			models.RequestPending, models.RequestAccepted, "")
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Caso aceptado. Chat habilitado.", "chatId": requestID})
}

type rejectReq struct {
	Reason string `json:"reason"`
}

// @Summary      Reject a request
// @Description  Assigned lawyer declines a routed request; it returns to the public pool
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "request id (uuid)"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /requests/{id}/reject [post]
func (h *Handler) Reject(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}
	var in rejectReq
	_ = c.BodyParser(&in)

	lw, err := lawyerFor(h.db, auth.MustUserID(c))
	if err != nil || lw.Profile == nil {
		return fiber.ErrNotFound
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var cr models.ContactRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cr, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.ErrNotFound
			}
			return fiber.ErrInternalServerError
		}
		if cr.LawyerProfileID == nil || *cr.LawyerProfileID != lw.Profile.ID {
			return fiber.ErrForbidden
		}
		if cr.Status != models.RequestAccepted && cr.Status != models.RequestPending {
			return fiber.NewError(fiber.StatusConflict, "request cannot be rejected")
		}
		oldStatus := cr.Status

		if err := tx.Model(&cr).Updates(map[string]any{
			"status":                  models.RequestPending,
			"crm_status":              models.CRMNew,
			"sub_status":              models.SubWaitingLawyer,
			"lawyer_profile_id":       nil,
			"accepted_at":             nil,
			"last_lawyer_activity_at": nil,
			"rejection_reason":        strings.TrimSpace(in.Reason),
			"rejection_count":         gorm.Expr("rejection_count + 1"),
		}).Error; err != nil {
			return fiber.ErrInternalServerError
		}

		utils.LogRequestHistory(c.Context(), tx, cr.ID, lw.UserID, "rejected",
			oldStatus, models.RequestPending, strings.TrimSpace(in.Reason))
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Solicitud devuelta a la bolsa pública"})
}

/* ============================= CRM workflow ============================= */

type crmUpdateReq struct {
	CRMStatus string `json:"crm_status" validate:"required,oneof=NEW IN_PROGRESS CLOSED_WON CLOSED_LOST ARCHIVED"`
}

// @Summary      Update CRM status
// @Description  Assigned lawyer moves the case through the CRM workflow; counts as lawyer activity
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string        true  "request id (uuid)"
// @Param        payload  body  crmUpdateReq  true  "CRM payload"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /requests/{id}/crm [patch]
func (h *Handler) UpdateCRM(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}
	var in crmUpdateReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	lw, err := lawyerFor(h.db, auth.MustUserID(c))
	if err != nil || lw.Profile == nil {
		return fiber.ErrNotFound
	}

	// Conditional update: only the assigned lawyer on an accepted case.
	res := h.db.Model(&models.ContactRequest{}).
		Where("id = ? AND status = ? AND lawyer_profile_id = ?",
			requestID, models.RequestAccepted, lw.Profile.ID).
		Updates(map[string]any{
			"crm_status":              models.CRMStatus(in.CRMStatus),
			"last_lawyer_activity_at": time.Now(),
		})
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}
	if res.RowsAffected == 0 {
		return fiber.ErrForbidden
	}

	utils.LogRequestHistory(c.Context(), h.db, requestID, lw.UserID, "crm_updated",
		models.RequestAccepted, models.RequestAccepted, in.CRMStatus)
	return c.JSON(fiber.Map{"crm_status": in.CRMStatus})
}
