package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huntertut/aliado-laboral-backend/internal/auth"
	"github.com/huntertut/aliado-laboral-backend/pkg/models"
	"github.com/huntertut/aliado-laboral-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Type    string `json:"type" validate:"omitempty,oneof=text document"`
}

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

// participant resolves the caller's side of a conversation. Returns the
// request, whether the caller is the worker, and the caller's uuid.
func (h *Handler) participant(c *fiber.Ctx, requestID uuid.UUID) (*models.ContactRequest, bool, uuid.UUID, error) {
	userID, _ := uuid.Parse(auth.MustUserID(c))

	var cr models.ContactRequest
	if err := h.db.Preload("LawyerProfile").First(&cr, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, userID, fiber.ErrNotFound
		}
		return nil, false, userID, fiber.ErrInternalServerError
	}

	if cr.WorkerID == userID {
		return &cr, true, userID, nil
	}
	if cr.LawyerProfileID != nil {
		var lw models.Lawyer
		if err := h.db.First(&lw, "id = ?", cr.LawyerProfile.LawyerID).Error; err == nil && lw.UserID == userID {
			return &cr, false, userID, nil
		}
	}
	return nil, false, userID, fiber.ErrForbidden
}

/* ================================ Send ================================== */

// @Summary      Send chat message
// @Description  Participant sends a message; the parent request's denormalized chat fields and activity stamps are updated in the same transaction
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string              true  "request id (uuid)"
// @Param        payload  body  SendMessageRequest  true  "Message payload"
// @Success      201  {object}  models.ChatMessage
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "chat not active"
// @Router       /requests/{id}/messages [post]
func (h *Handler) Send(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}

	var in SendMessageRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cr, isWorker, senderID, err := h.participant(c, requestID)
	if err != nil {
		return err
	}
	if cr.Status != models.RequestAccepted {
		return fiber.NewError(fiber.StatusConflict, "chat is not active for this request")
	}

	msgType := models.MessageType(in.Type)
	if msgType == "" {
		msgType = models.MessageText
	}

	now := time.Now()
	msg := models.ChatMessage{
		RequestID: requestID,
		SenderID:  senderID,
		Content:   strings.TrimSpace(in.Content),
		Type:      msgType,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		// Denormalize onto the parent request. The activity stamps feed
		// the SLA engine: lawyer replies reset the staleness clock.
		update := map[string]any{
			"last_message_content": msg.Content,
			"last_message_at":      now,
		}
		if isWorker {
			update["sub_status"] = models.SubWaitingLawyerResponse
			update["last_worker_activity_at"] = now
			update["unread_count_lawyer"] = gorm.Expr("unread_count_lawyer + 1")
		} else {
			update["sub_status"] = models.SubWaitingWorkerResponse
			update["last_lawyer_activity_at"] = now
			update["unread_count_worker"] = gorm.Expr("unread_count_worker + 1")
		}
		return tx.Model(&models.ContactRequest{}).
			Where("id = ?", requestID).
			Updates(update).Error
	})
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

/* ================================ List ================================== */

// @Summary      List chat messages
// @Description  Participant reads the conversation (ascending); clears their unread counter
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "request id (uuid)"
// @Success      200  {array}   models.ChatMessage
// @Failure      403  {object}  models.ErrorResponse
// @Router       /requests/{id}/messages [get]
func (h *Handler) List(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}

	_, isWorker, _, err := h.participant(c, requestID)
	if err != nil {
		return err
	}

	var msgs []models.ChatMessage
	if err := h.db.Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}

	// Reading the thread clears the reader's unread counter.
	col := "unread_count_lawyer"
	if isWorker {
		col = "unread_count_worker"
	}
	_ = h.db.Model(&models.ContactRequest{}).
		Where("id = ?", requestID).
		UpdateColumn(col, 0).Error

	return c.JSON(msgs)
}
