package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/repos"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

// PlanService keeps the planning subsystem's record in step with the
// enrolment lifecycle: a resolved due date upserts a plan, an archived
// enrolment takes its plan with it. No due date means no plan.
type PlanService interface {
	SyncDueDate(ctx context.Context, tx *gorm.DB, enrolment *types.Enrolment, dueDate *time.Time) (*Event, error)
	RemoveForEnrolments(ctx context.Context, tx *gorm.DB, enrolmentIDs []uuid.UUID) error
}

type planService struct {
	log      *logger.Logger
	planRepo repos.PlanRepo
}

func NewPlanService(baseLog *logger.Logger, planRepo repos.PlanRepo) PlanService {
	return &planService{
		log:      baseLog.With("service", "PlanService"),
		planRepo: planRepo,
	}
}

func (s *planService) SyncDueDate(ctx context.Context, tx *gorm.DB, enrolment *types.Enrolment, dueDate *time.Time) (*Event, error) {
	if dueDate == nil {
		return nil, nil
	}
	existing, err := s.planRepo.GetByEnrolmentID(ctx, tx, enrolment.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.DueDate != nil && existing.DueDate.Equal(*dueDate) {
		return nil, nil
	}
	plan, created, err := s.planRepo.UpsertForEnrolment(ctx, tx, enrolment, *dueDate)
	if err != nil {
		return nil, err
	}
	ev := NewPlanEvent(plan, created)
	return &ev, nil
}

func (s *planService) RemoveForEnrolments(ctx context.Context, tx *gorm.DB, enrolmentIDs []uuid.UUID) error {
	return s.planRepo.DeleteByEnrolmentIDs(ctx, tx, enrolmentIDs)
}
