package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanType string

const (
	PlanTypeSuggested PlanType = "suggested"
	PlanTypeAssigned  PlanType = "assigned"
)

// Plan is the planning subsystem's assignment/due-date record. The
// lifecycle manager creates and updates plans as a side effect of due-date
// resolution; everything else about plans is owned elsewhere.
type Plan struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	LoID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"lo_id"`
	PortalID  uuid.UUID  `gorm:"type:uuid;not null" json:"portal_id"`
	Type      PlanType   `gorm:"column:type;not null;default:'suggested'" json:"type"`
	DueDate   *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Plan) TableName() string { return "plan" }

func (p *Plan) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EnrolmentPlan links an enrolment 1:1 to its plan.
type EnrolmentPlan struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EnrolmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"enrolment_id"`
	PlanID      uuid.UUID `gorm:"type:uuid;not null;index" json:"plan_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (EnrolmentPlan) TableName() string { return "enrolment_plan" }

func (ep *EnrolmentPlan) BeforeCreate(_ *gorm.DB) error {
	if ep.ID == uuid.Nil {
		ep.ID = uuid.New()
	}
	return nil
}
