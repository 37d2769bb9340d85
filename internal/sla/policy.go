// Package sla holds the case-lifecycle policy engine: the pure threshold
// rules, the nightly sweep that enforces them (strikes, reassignment,
// suspension), and the inactivity nudge scan.
package sla

import (
	"time"

	"github.com/huntertut/aliado-laboral-backend/pkg/models"
)

/* =============================== Thresholds ============================= */

const (
	// NeglectWindow: an accepted case the lawyer never moved out of CRM
	// NEW within this window goes back to the public pool and costs a
	// strike.
	NeglectWindow = 24 * time.Hour

	// StaleWindow: no lawyer activity for this long flags the case as
	// needing attention.
	StaleWindow = 5 * 24 * time.Hour

	// NudgeWindow: no update at all for this long triggers the nudge
	// scan (yellow), escalating to red at RedAfterDays.
	NudgeWindow  = 4 * 24 * time.Hour
	RedAfterDays = 7

	// StrikeLimit: strikes at or above this suspend the lawyer.
	StrikeLimit = 3
)

/* ================================ Rules ================================= */

// Neglected reports whether the 24-hour no-contact rule applies: the
// case was accepted, the lawyer never touched the CRM status, and the
// acceptance is older than NeglectWindow.
func Neglected(cr *models.ContactRequest, now time.Time) bool {
	if cr.Status != models.RequestAccepted || cr.CRMStatus != models.CRMNew {
		return false
	}
	if cr.AcceptedAt == nil {
		return false
	}
	return now.Sub(*cr.AcceptedAt) > NeglectWindow
}

// Stale reports whether the 5-day no-lawyer-activity rule applies.
// Cases already flagged needs_attention are excluded so the flag is set
// once per stall, not on every sweep.
func Stale(cr *models.ContactRequest, now time.Time) bool {
	if cr.Status != models.RequestAccepted || cr.CRMStatus.Terminal() {
		return false
	}
	if cr.SubStatus == models.SubNeedsAttention {
		return false
	}
	if cr.LastLawyerActivityAt == nil {
		return false
	}
	return now.Sub(*cr.LastLawyerActivityAt) > StaleWindow
}

// NudgeLevel grades inactivity for the nudge scan.
type NudgeLevel int

const (
	NudgeNone NudgeLevel = iota
	NudgeYellow
	NudgeRed
)

// InactiveDays returns ceil((now - updatedAt) / 24h). A case updated
// exactly N days ago counts as N, anything past that rolls to N+1.
func InactiveDays(updatedAt, now time.Time) int {
	d := now.Sub(updatedAt)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// NudgeFor decides which nudge branch (if any) applies to a case. The
// nudge rule only looks at accepted, non-terminal, non-archived cases
// whose updatedAt is older than NudgeWindow.
func NudgeFor(cr *models.ContactRequest, now time.Time) NudgeLevel {
	if cr.Status != models.RequestAccepted {
		return NudgeNone
	}
	if cr.CRMStatus.Terminal() || cr.CRMStatus == models.CRMArchived {
		return NudgeNone
	}
	if now.Sub(cr.UpdatedAt) < NudgeWindow {
		return NudgeNone
	}
	if InactiveDays(cr.UpdatedAt, now) >= RedAfterDays {
		return NudgeRed
	}
	return NudgeYellow
}
