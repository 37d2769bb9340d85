package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huntertut/aliado-laboral-backend/internal/auth"
	"github.com/huntertut/aliado-laboral-backend/internal/sla"
	"github.com/huntertut/aliado-laboral-backend/pkg/models"
)

type Handler struct {
	db      *gorm.DB
	sweeper *sla.Sweeper
	nudger  *sla.Nudger
}

func NewHandler(db *gorm.DB, sweeper *sla.Sweeper, nudger *sla.Nudger) *Handler {
	return &Handler{db: db, sweeper: sweeper, nudger: nudger}
}

/* ================================ Alerts ================================ */

// @Summary      List admin alerts
// @Description  Operator view of alerts created by the SLA engine; undismissed first
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   models.AdminAlert
// @Failure      403  {object}  models.ErrorResponse
// @Router       /admin/alerts [get]
func (h *Handler) ListAlerts(c *fiber.Ctx) error {
	var alerts []models.AdminAlert
	if err := h.db.
		Order("dismissed_at IS NOT NULL, created_at DESC").
		Limit(200).
		Find(&alerts).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if alerts == nil {
		alerts = []models.AdminAlert{}
	}
	return c.JSON(alerts)
}

// @Summary      Dismiss an alert
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "alert id (uuid)"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  models.ErrorResponse
// @Router       /admin/alerts/{id}/dismiss [post]
func (h *Handler) DismissAlert(c *fiber.Ctx) error {
	alertID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid alert id")
	}

	res := h.db.Model(&models.AdminAlert{}).
		Where("id = ? AND dismissed_at IS NULL", alertID).
		Update("dismissed_at", time.Now())
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}
	if res.RowsAffected == 0 {
		return fiber.ErrNotFound
	}
	return c.JSON(fiber.Map{"dismissed": true})
}

/* =============================== Lawyers ================================ */

// @Summary      Reinstate a suspended lawyer
// @Description  Clears strikes and reactivates the account after manual review
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "lawyer id (uuid)"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  models.ErrorResponse
// @Router       /admin/lawyers/{id}/reinstate [post]
func (h *Handler) ReinstateLawyer(c *fiber.Ctx) error {
	lawyerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}
	adminID, _ := uuid.Parse(auth.MustUserID(c))

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var lw models.Lawyer
		if err := tx.First(&lw, "id = ?", lawyerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.ErrNotFound
			}
			return fiber.ErrInternalServerError
		}
		if err := tx.Model(&lw).Updates(map[string]any{
			"strikes": 0,
			"status":  models.LawyerActive,
		}).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		return tx.Create(&models.AdminAlert{
			Type:          "lawyer_reinstated",
			Message:       "El abogado " + lw.ID.String() + " fue reactivado manualmente por el administrador " + adminID.String() + ".",
			Severity:      models.SeverityLow,
			RelatedUserID: &lw.UserID,
		}).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"reinstated": true})
}

/* ============================ Manual SLA run ============================ */

// @Summary      Run the SLA engines now
// @Description  Manual trigger for the sweep and the nudge scan, outside the nightly schedule
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      500  {object}  models.ErrorResponse
// @Router       /admin/sla/run [post]
func (h *Handler) RunSLA(c *fiber.Ctx) error {
	sweep, err := h.sweeper.Run(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "sweep failed: "+err.Error())
	}
	nudge, err := h.nudger.Run(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "nudge scan failed: "+err.Error())
	}
	return c.JSON(fiber.Map{"sweep": sweep, "nudge": nudge})
}
