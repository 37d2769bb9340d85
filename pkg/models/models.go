package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleWorker Role = "worker"
	RoleLawyer Role = "lawyer"
	RoleAdmin  Role = "admin"
	// RoleSystem is the service identity that authors synthetic chat
	// messages (nudges, escalations). It can never log in.
	RoleSystem Role = "system"
)

// RequestStatus defines lifecycle states for a contact request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestFinalized RequestStatus = "finalized"
	RequestArchived  RequestStatus = "archived"
)

// CRMStatus is the secondary workflow tag a lawyer moves a case through.
type CRMStatus string

const (
	CRMNew        CRMStatus = "NEW"
	CRMInProgress CRMStatus = "IN_PROGRESS"
	CRMClosedWon  CRMStatus = "CLOSED_WON"
	CRMClosedLost CRMStatus = "CLOSED_LOST"
	CRMArchived   CRMStatus = "ARCHIVED"
)

// Terminal reports whether the CRM workflow is finished for this case.
func (s CRMStatus) Terminal() bool {
	return s == CRMClosedWon || s == CRMClosedLost
}

// SubStatus is the fine-grained conversation state shown in the apps.
type SubStatus string

const (
	SubWaitingLawyer         SubStatus = "waiting_lawyer"
	SubChatActive            SubStatus = "chat_active"
	SubWaitingWorkerResponse SubStatus = "waiting_worker_response"
	SubWaitingLawyerResponse SubStatus = "waiting_lawyer_response"
	SubNeedsAttention        SubStatus = "needs_attention"
)

// LawyerStatus defines whether a lawyer may take new cases.
type LawyerStatus string

const (
	LawyerActive    LawyerStatus = "ACTIVE"
	LawyerSuspended LawyerStatus = "SUSPENDED"
)

// MessageType distinguishes human messages from synthetic ones.
type MessageType string

const (
	MessageText         MessageType = "text"
	MessageDocument     MessageType = "document"
	MessageSystemNotice MessageType = "system_notification"
	MessageAIResponse   MessageType = "ai_response"
)

// Severity grades an admin alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

/* ========================= Status transitions =========================== */

// allowedTransitions is the single authoritative map of legal request
// status changes. Both the HTTP handlers and the SLA engine go through
// CanTransition instead of writing raw status values.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestAccepted, RequestRejected, RequestArchived},
	RequestAccepted:  {RequestPending, RequestFinalized, RequestArchived},
	RequestRejected:  {RequestPending, RequestArchived},
	RequestFinalized: {RequestArchived},
}

// CanTransition reports whether a request may move from `from` to `to`.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

/* =============================== Entities =============================== */

// User represents a worker, lawyer, admin, or the system actor.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"type:varchar(20);not null"`
	FullName     string
	CreatedAt    time.Time
}

// Lawyer represents a legal-service provider account.
type Lawyer struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	Strikes   int          `gorm:"not null;default:0"`
	Status    LawyerStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt time.Time

	// Relations
	User    User           `gorm:"foreignKey:UserID;references:ID"`
	Profile *LawyerProfile `gorm:"foreignKey:LawyerID;references:ID"`
}

// LawyerProfile is the public-facing profile cases get routed to.
type LawyerProfile struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LawyerID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProfessionalName string
	Specialty        string
	ReputationScore  int `gorm:"not null;default:50"`
	CreatedAt        time.Time

	Lawyer Lawyer `gorm:"foreignKey:LawyerID;references:ID"`
}

// ContactRequest represents a worker's request for legal help, routed to
// at most one lawyer profile at a time. A nil LawyerProfileID means the
// case sits in the public pool.
type ContactRequest struct {
	ID              uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WorkerID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	LawyerProfileID *uuid.UUID    `gorm:"type:uuid;index"`
	Status          RequestStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	CRMStatus       CRMStatus     `gorm:"column:crm_status;type:varchar(20);not null;default:'NEW'"`
	SubStatus       SubStatus     `gorm:"type:varchar(30);not null;default:'waiting_lawyer'"`
	Category        string        `gorm:"not null"`
	Description     string

	AcceptedAt           *time.Time
	LastLawyerActivityAt *time.Time
	LastWorkerActivityAt *time.Time

	// Chat list denormalization
	LastMessageAt      *time.Time
	LastMessageContent string
	UnreadCountWorker  int `gorm:"not null;default:0"`
	UnreadCountLawyer  int `gorm:"not null;default:0"`

	RejectionReason string
	RejectionCount  int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	Worker        User           `gorm:"foreignKey:WorkerID;references:ID"`
	LawyerProfile *LawyerProfile `gorm:"foreignKey:LawyerProfileID;references:ID"`
}

// ChatMessage is one message inside a request's conversation. Synthetic
// messages carry the system user as sender and a non-text Type.
type ChatMessage struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID   `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID   `gorm:"type:uuid;not null"`
	Content   string      `gorm:"type:text;not null"`
	Type      MessageType `gorm:"type:varchar(30);not null;default:'text'"`
	SeenAt    *time.Time
	CreatedAt time.Time
}

// AdminAlert is an advisory record for human operators. Created by the
// SLA engine, dismissed by admin tooling, never mutated otherwise.
type AdminAlert struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type          string     `gorm:"type:varchar(50);not null"`
	Message       string     `gorm:"type:text;not null"`
	Severity      Severity   `gorm:"type:varchar(10);not null;default:'low'"`
	RelatedUserID *uuid.UUID `gorm:"type:uuid"`
	DismissedAt   *time.Time
	CreatedAt     time.Time
}

// RequestHistory is an audit log entry for important request changes.
type RequestHistory struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID     `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID     `gorm:"type:uuid;not null;index"` // who performed the action (worker/lawyer/system)
	Action    string        `gorm:"type:varchar(50);not null"` // e.g. created, accepted, reassigned_sla, crm_updated
	OldStatus RequestStatus `gorm:"type:varchar(20)"`
	NewStatus RequestStatus `gorm:"type:varchar(20)"`
	Reason    string        `gorm:"type:text"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
}
