package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LearningObjectType string

const (
	LoTypeCourse       LearningObjectType = "course"
	LoTypeModule       LearningObjectType = "module"
	LoTypeLearningItem LearningObjectType = "li"
)

// LearningObject is one node of the content catalog. The enrolment core
// reads these tables and never writes them.
type LearningObject struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	PortalID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"portal_id"`
	Type             LearningObjectType `gorm:"column:type;not null" json:"type"`
	Title            string             `gorm:"column:title;not null" json:"title"`
	// No column default: gorm drops zero-valued fields that carry one,
	// which would turn an explicit false into true on insert.
	Published        bool               `gorm:"column:published;not null" json:"published"`
	Commercial       bool               `gorm:"column:commercial;not null;default:false" json:"commercial"`
	RequiredSequence bool               `gorm:"column:required_sequence;not null;default:false" json:"required_sequence"`
	ElectiveNumber   int                `gorm:"column:elective_number;not null;default:0" json:"elective_number"`
	PassRequired     bool               `gorm:"column:pass_required;not null;default:false" json:"pass_required"`
	Metadata         datatypes.JSON     `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt        time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"not null" json:"updated_at"`
}

func (LearningObject) TableName() string { return "learning_object" }

// LearningObjectEdge is a parent->child edge in the catalog tree. Weight
// orders siblings for sequence gating; Elective marks membership of the
// parent's elective group.
type LearningObjectEdge struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParentLoID uuid.UUID `gorm:"type:uuid;not null;index:idx_lo_edge,unique" json:"parent_lo_id"`
	ChildLoID  uuid.UUID `gorm:"type:uuid;not null;index:idx_lo_edge,unique;index" json:"child_lo_id"`
	Weight     int       `gorm:"column:weight;not null;default:0" json:"weight"`
	Elective   bool      `gorm:"column:elective;not null;default:false" json:"elective"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (LearningObjectEdge) TableName() string { return "learning_object_edge" }

// LearningObjectDependency declares that LoID cannot start until
// DependsOnLoID is completed.
type LearningObjectDependency struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LoID          uuid.UUID `gorm:"type:uuid;not null;index:idx_lo_dependency,unique" json:"lo_id"`
	DependsOnLoID uuid.UUID `gorm:"type:uuid;not null;index:idx_lo_dependency,unique;index" json:"depends_on_lo_id"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (LearningObjectDependency) TableName() string { return "learning_object_dependency" }

// CompletionRule is the due-date policy attached to a learning object.
// Zero or one per LO; Value is an ISO date for fixed_date rules and an
// ISO-8601 duration for the others.
type CompletionRule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LoID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"lo_id"`
	Type      string    `gorm:"column:type;not null" json:"type"`
	Value     string    `gorm:"column:value;not null" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CompletionRule) TableName() string { return "completion_rule" }
