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
	"github.com/huntertut/aliado-laboral-backend/pkg/utils"
)

// Report summarizes one sweep run for logging and the manual admin trigger.
type Report struct {
	Scanned    int `json:"scanned"`
	Reassigned int `json:"reassigned"`
	Struck     int `json:"struck"`
	Suspended  int `json:"suspended"`
	Flagged    int `json:"flagged"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Sweeper runs the nightly SLA enforcement pass: neglected cases go back
// to the public pool with a strike against the lawyer, stalled cases get
// flagged needs_attention. It holds no state between runs; every run
// re-derives its working set from a fresh query.
type Sweeper struct {
	db       *gorm.DB
	log      *slog.Logger
	systemID uuid.UUID
	now      func() time.Time
}

func NewSweeper(db *gorm.DB, log *slog.Logger, systemID uuid.UUID) *Sweeper {
	return &Sweeper{db: db, log: log, systemID: systemID, now: time.Now}
}

// Run executes the neglect pass and then the staleness pass. A failure
// on one case is logged and does not stop the rest of the batch; only a
// failure to query the store at all aborts the run.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	now := s.now()
	var rep Report

	// Neglect rule: accepted, still CRM NEW, accepted more than 24h ago.
	var neglected []models.ContactRequest
	err := s.db.WithContext(ctx).
		Preload("LawyerProfile").
		Preload("LawyerProfile.Lawyer").
		Where("status = ? AND crm_status = ? AND accepted_at < ?",
			models.RequestAccepted, models.CRMNew, now.Add(-NeglectWindow)).
		Find(&neglected).Error
	if err != nil {
		return rep, goerr.Wrap(err, "querying neglected requests")
	}
	rep.Scanned += len(neglected)
	s.log.Info("sla sweep: neglect pass", "matched", len(neglected))

	for i := range neglected {
		cr := &neglected[i]
		out, err := s.reassign(ctx, cr)
		if err != nil {
			rep.Failed++
			s.log.Error("sla sweep: reassignment failed",
				"requestID", cr.ID, "error", err)
			continue
		}
		if out.skipped {
			rep.Skipped++
			continue
		}
		rep.Reassigned++
		rep.Struck++
		if out.suspended {
			rep.Suspended++
		}
	}

	// Staleness rule runs after the neglect pass. A reassigned case has
	// last_lawyer_activity_at nulled by the reset, so the two rules are
	// mutually exclusive within one run.
	flagged, skipped, err := s.flagStale(ctx, now)
	if err != nil {
		return rep, err
	}
	rep.Flagged = flagged
	rep.Skipped += skipped

	s.log.Info("sla sweep: complete",
		"scanned", rep.Scanned, "reassigned", rep.Reassigned,
		"suspended", rep.Suspended, "flagged", rep.Flagged,
		"skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

type sweepOutcome struct {
	skipped   bool
	suspended bool
}

// reassign applies the neglect rule to one case: reset it to the public
// pool and charge the lawyer a strike, both inside one transaction so a
// crash never leaves a strike without the reassignment or vice versa.
func (s *Sweeper) reassign(ctx context.Context, cr *models.ContactRequest) (sweepOutcome, error) {
	var out sweepOutcome

	lp := cr.LawyerProfile
	if lp == nil {
		// Unassigned case matching the filter is a data inconsistency;
		// nothing to strike, leave it for the admins.
		out.skipped = true
		s.log.Warn("sla sweep: neglected request has no lawyer profile", "requestID", cr.ID)
		return out, nil
	}
	if !models.CanTransition(cr.Status, models.RequestPending) {
		out.skipped = true
		return out, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional reset: the selection predicate doubles as an
		// optimistic precondition. Zero rows means somebody (a lawyer
		// working the case, a concurrent sweep) got here first.
		res := tx.Model(&models.ContactRequest{}).
			Where("id = ? AND status = ? AND crm_status = ? AND lawyer_profile_id = ?",
				cr.ID, models.RequestAccepted, models.CRMNew, lp.ID).
			Updates(map[string]any{
				"status":                  models.RequestPending,
				"crm_status":              models.CRMNew,
				"lawyer_profile_id":       nil,
				"accepted_at":             nil,
				"last_lawyer_activity_at": nil,
				"sub_status":              models.SubWaitingLawyer,
				"rejection_reason":        "TIMEOUT_24H_AUTO",
				"rejection_count":         gorm.Expr("rejection_count + 1"),
			})
		if res.Error != nil {
			return goerr.Wrap(res.Error, "resetting request", goerr.V("requestID", cr.ID))
		}
		if res.RowsAffected == 0 {
			out.skipped = true
			return nil
		}

		if err := tx.Model(&models.Lawyer{}).
			Where("id = ?", lp.LawyerID).
			UpdateColumn("strikes", gorm.Expr("strikes + 1")).Error; err != nil {
			return goerr.Wrap(err, "incrementing strikes", goerr.V("lawyerID", lp.LawyerID))
		}

		var lw models.Lawyer
		if err := tx.First(&lw, "id = ?", lp.LawyerID).Error; err != nil {
			return goerr.Wrap(err, "reloading lawyer", goerr.V("lawyerID", lp.LawyerID))
		}

		if lw.Strikes >= StrikeLimit && lw.Status != models.LawyerSuspended {
			if err := tx.Model(&models.Lawyer{}).
				Where("id = ?", lw.ID).
				Update("status", models.LawyerSuspended).Error; err != nil {
				return goerr.Wrap(err, "suspending lawyer", goerr.V("lawyerID", lw.ID))
			}
			alert := models.AdminAlert{
				Type:          "lawyer_suspended",
				Message:       fmt.Sprintf("El abogado con ID %s fue suspendido automáticamente por acumular %d strikes de inactividad.", lw.ID, lw.Strikes),
				Severity:      models.SeverityHigh,
				RelatedUserID: &lw.UserID,
			}
			if err := tx.Create(&alert).Error; err != nil {
				return goerr.Wrap(err, "creating suspension alert", goerr.V("lawyerID", lw.ID))
			}
			out.suspended = true
		}

		utils.LogRequestHistory(ctx, tx, cr.ID, s.systemID, "reassigned_sla",
			models.RequestAccepted, models.RequestPending, "TIMEOUT_24H_AUTO")
		return nil
	})
	if err != nil {
		return sweepOutcome{}, err
	}

	if !out.skipped {
		s.log.Info("sla sweep: request returned to pool",
			"requestID", cr.ID, "lawyerID", lp.LawyerID, "suspended", out.suspended)
	}
	return out, nil
}

// flagStale marks accepted, non-terminal cases with no lawyer activity
// for over five days as needs_attention. One conditional update per case
// keeps the per-unit fault isolation of the neglect pass.
func (s *Sweeper) flagStale(ctx context.Context, now time.Time) (flagged, skipped int, err error) {
	var stale []models.ContactRequest
	err = s.db.WithContext(ctx).
		Where("status = ? AND crm_status NOT IN ? AND sub_status <> ? AND last_lawyer_activity_at < ?",
			models.RequestAccepted,
			[]models.CRMStatus{models.CRMClosedWon, models.CRMClosedLost},
			models.SubNeedsAttention,
			now.Add(-StaleWindow)).
		Find(&stale).Error
	if err != nil {
		return 0, 0, goerr.Wrap(err, "querying stale requests")
	}
	s.log.Info("sla sweep: staleness pass", "matched", len(stale))

	for i := range stale {
		cr := &stale[i]
		res := s.db.WithContext(ctx).Model(&models.ContactRequest{}).
			Where("id = ? AND status = ? AND sub_status <> ? AND last_lawyer_activity_at < ?",
				cr.ID, models.RequestAccepted, models.SubNeedsAttention, now.Add(-StaleWindow)).
			Update("sub_status", models.SubNeedsAttention)
		if res.Error != nil {
			s.log.Error("sla sweep: flagging failed", "requestID", cr.ID, "error", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			skipped++
			continue
		}
		flagged++
		s.log.Info("sla sweep: request flagged needs_attention", "requestID", cr.ID)
	}
	return flagged, skipped, nil
}
