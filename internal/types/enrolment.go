package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EnrolmentStatus string

const (
	StatusPending    EnrolmentStatus = "pending"
	StatusNotStarted EnrolmentStatus = "not_started"
	StatusInProgress EnrolmentStatus = "in_progress"
	StatusCompleted  EnrolmentStatus = "completed"
	StatusExpired    EnrolmentStatus = "expired"
)

type PassState string

const (
	PassUnset  PassState = ""
	PassFailed PassState = "failed"
	PassPassed PassState = "passed"
)

// statusRank orders statuses for the monotonic-progression check. The two
// terminal states share the top rank; moving between them still needs
// privilege because both are terminal.
var statusRank = map[EnrolmentStatus]int{
	StatusPending:    0,
	StatusNotStarted: 1,
	StatusInProgress: 2,
	StatusCompleted:  3,
	StatusExpired:    3,
}

func ValidStatus(s EnrolmentStatus) bool {
	_, ok := statusRank[s]
	return ok
}

func TerminalStatus(s EnrolmentStatus) bool {
	return s == StatusCompleted || s == StatusExpired
}

// CanTransition reports whether from -> to is an allowed progression.
// Forward moves are always allowed; leaving a terminal state, or any
// backward move, needs a privileged actor.
func CanTransition(from, to EnrolmentStatus, privileged bool) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	if TerminalStatus(from) {
		return privileged
	}
	if statusRank[to] < statusRank[from] {
		return privileged
	}
	return true
}

// Enrolment is one learner's live progress record against one learning
// object in one taken context. At most one live row exists per
// (user_id, lo_id, parent_enrolment_id, taken_portal_id); the zero UUID
// stands in for "no parent" so the unique index covers roots too.
type Enrolment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"profile_id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_live_enrolment,unique" json:"user_id"`
	LoID              uuid.UUID       `gorm:"type:uuid;not null;index:idx_live_enrolment,unique" json:"lo_id"`
	ParentLoID        uuid.UUID       `gorm:"type:uuid" json:"parent_lo_id"`
	ParentEnrolmentID uuid.UUID       `gorm:"type:uuid;index:idx_live_enrolment,unique;index" json:"parent_enrolment_id"`
	TakenPortalID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_live_enrolment,unique" json:"taken_portal_id"`
	Status            EnrolmentStatus `gorm:"column:status;not null;default:'not_started'" json:"status"`
	Pass              PassState       `gorm:"column:pass;not null;default:''" json:"pass"`
	Result            *float64        `gorm:"column:result" json:"result,omitempty"`
	StartDate         *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate           *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	DueDate           *time.Time      `gorm:"column:due_date" json:"due_date,omitempty"`
	AssignerID        uuid.UUID       `gorm:"type:uuid" json:"assigner_id"`
	AssignDate        *time.Time      `gorm:"column:assign_date" json:"assign_date,omitempty"`
	Data              datatypes.JSON  `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	ChangedAt         time.Time       `gorm:"column:changed_at;not null;autoUpdateTime" json:"changed_at"`
}

func (Enrolment) TableName() string { return "enrolment" }

func (e *Enrolment) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *Enrolment) Root() bool { return e.ParentEnrolmentID == uuid.Nil }

// HistoryEntry is one free-form audit line kept inside the enrolment's
// data blob, separate from the revision log.
type HistoryEntry struct {
	ActorID    uuid.UUID       `json:"actor_id"`
	FromStatus EnrolmentStatus `json:"from_status"`
	ToStatus   EnrolmentStatus `json:"to_status"`
	At         time.Time       `json:"at"`
	Note       string          `json:"note,omitempty"`
}

type enrolmentData struct {
	History []HistoryEntry `json:"history,omitempty"`
}

// AppendHistory returns the data blob with one more history entry. A blob
// that fails to parse is replaced rather than lost silently; the prior raw
// value is unrecoverable anyway at that point.
func AppendHistory(data datatypes.JSON, entry HistoryEntry) datatypes.JSON {
	var d enrolmentData
	if len(data) > 0 {
		_ = json.Unmarshal(data, &d)
	}
	d.History = append(d.History, entry)
	raw, err := json.Marshal(d)
	if err != nil {
		return data
	}
	return datatypes.JSON(raw)
}

// History parses the history entries out of the data blob.
func History(data datatypes.JSON) []HistoryEntry {
	var d enrolmentData
	if len(data) > 0 {
		_ = json.Unmarshal(data, &d)
	}
	return d.History
}
