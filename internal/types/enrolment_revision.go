package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnrolmentRevision is an immutable copy of a superseded enrolment row.
// Rows are inserted by archive/re-enrol/delete and never updated.
type EnrolmentRevision struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EnrolmentID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"enrolment_id"`
	ProfileID         uuid.UUID       `gorm:"type:uuid;not null" json:"profile_id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	LoID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"lo_id"`
	ParentLoID        uuid.UUID       `gorm:"type:uuid" json:"parent_lo_id"`
	ParentEnrolmentID uuid.UUID       `gorm:"type:uuid" json:"parent_enrolment_id"`
	TakenPortalID     uuid.UUID       `gorm:"type:uuid;not null" json:"taken_portal_id"`
	Status            EnrolmentStatus `gorm:"column:status;not null" json:"status"`
	Pass              PassState       `gorm:"column:pass;not null;default:''" json:"pass"`
	Result            *float64        `gorm:"column:result" json:"result,omitempty"`
	StartDate         *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate           *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	DueDate           *time.Time      `gorm:"column:due_date" json:"due_date,omitempty"`
	Data              datatypes.JSON  `gorm:"type:jsonb;column:data" json:"data"`
	ArchivedByID      uuid.UUID       `gorm:"type:uuid" json:"archived_by_id"`
	ArchivedAt        time.Time       `gorm:"column:archived_at;not null" json:"archived_at"`
}

func (EnrolmentRevision) TableName() string { return "enrolment_revision" }

func (r *EnrolmentRevision) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewRevision snapshots a live enrolment into a revision row.
func NewRevision(e *Enrolment, actorID uuid.UUID, at time.Time) *EnrolmentRevision {
	return &EnrolmentRevision{
		EnrolmentID:       e.ID,
		ProfileID:         e.ProfileID,
		UserID:            e.UserID,
		LoID:              e.LoID,
		ParentLoID:        e.ParentLoID,
		ParentEnrolmentID: e.ParentEnrolmentID,
		TakenPortalID:     e.TakenPortalID,
		Status:            e.Status,
		Pass:              e.Pass,
		Result:            e.Result,
		StartDate:         e.StartDate,
		EndDate:           e.EndDate,
		DueDate:           e.DueDate,
		Data:              e.Data,
		ArchivedByID:      actorID,
		ArchivedAt:        at,
	}
}
