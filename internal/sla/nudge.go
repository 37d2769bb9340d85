package sla

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"github.com/huntertut/aliado-laboral-backend/pkg/models"
)

// NudgeReport summarizes one nudge scan.
type NudgeReport struct {
	Scanned int `json:"scanned"`
	Red     int `json:"red"`
	Yellow  int `json:"yellow"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Nudger is the inactivity scan: accepted cases nobody touched for four
// days get a synthetic chat nudge; at seven days the lawyer's reputation
// takes a hit. Synthetic messages are authored by the system user, never
// impersonating the lawyer.
type Nudger struct {
	db       *gorm.DB
	log      *slog.Logger
	systemID uuid.UUID
	now      func() time.Time
}

func NewNudger(db *gorm.DB, log *slog.Logger, systemID uuid.UUID) *Nudger {
	return &Nudger{db: db, log: log, systemID: systemID, now: time.Now}
}

// Run scans for inactive cases and applies the yellow or red branch to
// each. A failure on one case does not stop the rest of the batch.
func (n *Nudger) Run(ctx context.Context) (NudgeReport, error) {
	now := n.now()
	var rep NudgeReport

	var stale []models.ContactRequest
	err := n.db.WithContext(ctx).
		Preload("LawyerProfile").
		Preload("LawyerProfile.Lawyer").
		Preload("LawyerProfile.Lawyer.User").
		Where("status = ? AND crm_status NOT IN ? AND updated_at <= ?",
			models.RequestAccepted,
			[]models.CRMStatus{models.CRMClosedWon, models.CRMClosedLost, models.CRMArchived},
			now.Add(-NudgeWindow)).
		Find(&stale).Error
	if err != nil {
		return rep, goerr.Wrap(err, "querying inactive requests")
	}
	rep.Scanned = len(stale)
	n.log.Info("nudge scan: start", "matched", len(stale))

	for i := range stale {
		cr := &stale[i]

		if cr.LawyerProfile == nil {
			// Pool cases can't be nudged; there is nobody to press.
			rep.Skipped++
			n.log.Warn("nudge scan: no lawyer profile attached", "requestID", cr.ID)
			continue
		}

		level := NudgeFor(cr, now)
		if level == NudgeNone {
			rep.Skipped++
			continue
		}

		if err := n.nudge(ctx, cr, level, now); err != nil {
			rep.Failed++
			n.log.Error("nudge scan: case failed", "requestID", cr.ID, "error", err)
			continue
		}
		if level == NudgeRed {
			rep.Red++
		} else {
			rep.Yellow++
		}
	}

	n.log.Info("nudge scan: complete",
		"scanned", rep.Scanned, "red", rep.Red, "yellow", rep.Yellow,
		"skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

// nudge applies one branch to one case: compose the synthetic messages,
// apply the reputation penalty when red, and re-arm the four-day window
// by stamping updated_at explicitly. One transaction per case.
func (n *Nudger) nudge(ctx context.Context, cr *models.ContactRequest, level NudgeLevel, now time.Time) error {
	lp := cr.LawyerProfile

	return n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch level {
		case NudgeRed:
			// Escalation to the worker plus a reputation penalty.
			msg := models.ChatMessage{
				RequestID: cr.ID,
				SenderID:  n.systemID,
				Content: "🔴 Semáforo Rojo: tu caso requiere atención. Estamos contactando al despacho directamente.\n\n" +
					"Mientras tanto, recuerda tus derechos:\n" +
					"1. Tienes derecho a una copia de todo lo actuado.\n" +
					"2. La inactividad no extingue tu derecho a la liquidación.\n" +
					"3. La reputación del abogado ha sido penalizada por esta demora.",
				Type: models.MessageAIResponse,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return goerr.Wrap(err, "creating red escalation message", goerr.V("requestID", cr.ID))
			}
			if err := tx.Model(&models.LawyerProfile{}).
				Where("id = ?", lp.ID).
				UpdateColumn("reputation_score", gorm.Expr("reputation_score - 1")).Error; err != nil {
				return goerr.Wrap(err, "decrementing reputation", goerr.V("profileID", lp.ID))
			}

		case NudgeYellow:
			lawyerName := "Colega"
			if lp.Lawyer.User.FullName != "" {
				lawyerName = lp.Lawyer.User.FullName
			}
			nudgeMsg := models.ChatMessage{
				RequestID: cr.ID,
				SenderID:  n.systemID,
				Content: fmt.Sprintf("⚡ ¡Lic. %s, no bajes tu ritmo!\n\n"+
					"Tu tiempo de respuesta ha subido a 4 días. Los abogados con respuesta < 24h tienen un 40%% más de probabilidad de recibir casos HOT.\n\n"+
					"¡Contesta ahora y recupera tu Score de Oro!", lawyerName),
				Type: models.MessageSystemNotice,
			}
			if err := tx.Create(&nudgeMsg).Error; err != nil {
				return goerr.Wrap(err, "creating lawyer nudge", goerr.V("requestID", cr.ID))
			}
			reassure := models.ChatMessage{
				RequestID: cr.ID,
				SenderID:  n.systemID,
				Content: "🟡 Semáforo Amarillo: estamos esperando una actualización. " +
					"Ya enviamos un recordatorio prioritario a tu abogado para que no pierda el hilo.",
				Type: models.MessageAIResponse,
			}
			if err := tx.Create(&reassure).Error; err != nil {
				return goerr.Wrap(err, "creating worker reassurance", goerr.V("requestID", cr.ID))
			}
		}

		// Explicit cycle reset: the case won't match the four-day filter
		// again until another full window elapses. UpdateColumn so the
		// stamp is exactly `now`, not a hook side effect.
		if err := tx.Model(&models.ContactRequest{}).
			Where("id = ?", cr.ID).
			UpdateColumn("updated_at", now).Error; err != nil {
			return goerr.Wrap(err, "re-arming nudge window", goerr.V("requestID", cr.ID))
		}
		return nil
	})
}
