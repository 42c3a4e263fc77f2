package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/enroltrack-backend/internal/logger"
  "github.com/yungbote/enroltrack-backend/internal/types"
)

type PlanRepo interface {
  GetByEnrolmentID(ctx context.Context, tx *gorm.DB, enrolmentID uuid.UUID) (*types.Plan, error)
  UpsertForEnrolment(ctx context.Context, tx *gorm.DB, enrolment *types.Enrolment, dueDate time.Time) (*types.Plan, bool, error)
  DeleteByEnrolmentIDs(ctx context.Context, tx *gorm.DB, enrolmentIDs []uuid.UUID) error
}

type planRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
  return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) conn(tx *gorm.DB) *gorm.DB {
  if tx != nil {
    return tx
  }
  return r.db
}

func (r *planRepo) GetByEnrolmentID(ctx context.Context, tx *gorm.DB, enrolmentID uuid.UUID) (*types.Plan, error) {
  if enrolmentID == uuid.Nil {
    return nil, nil
  }
  transaction := r.conn(tx)

  var link types.EnrolmentPlan
  err := transaction.WithContext(ctx).
    Where("enrolment_id = ?", enrolmentID).
    First(&link).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }

  var plan types.Plan
  if err := transaction.WithContext(ctx).
    Where("id = ?", link.PlanID).
    First(&plan).Error; err != nil {
    return nil, err
  }
  return &plan, nil
}

// UpsertForEnrolment creates the plan and its join row on first resolution
// and updates the due date afterwards. Returns created=true on the first
// path.
func (r *planRepo) UpsertForEnrolment(ctx context.Context, tx *gorm.DB, enrolment *types.Enrolment, dueDate time.Time) (*types.Plan, bool, error) {
  transaction := r.conn(tx)

  existing, err := r.GetByEnrolmentID(ctx, transaction, enrolment.ID)
  if err != nil {
    return nil, false, err
  }
  if existing != nil {
    if err := transaction.WithContext(ctx).
      Model(&types.Plan{}).
      Where("id = ?", existing.ID).
      Update("due_date", dueDate).Error; err != nil {
      return nil, false, err
    }
    existing.DueDate = &dueDate
    return existing, false, nil
  }

  plan := &types.Plan{
    ID:       uuid.New(),
    UserID:   enrolment.UserID,
    LoID:     enrolment.LoID,
    PortalID: enrolment.TakenPortalID,
    Type:     types.PlanTypeSuggested,
    DueDate:  &dueDate,
  }
  if err := transaction.WithContext(ctx).Create(plan).Error; err != nil {
    return nil, false, err
  }
  link := &types.EnrolmentPlan{
    ID:          uuid.New(),
    EnrolmentID: enrolment.ID,
    PlanID:      plan.ID,
  }
  if err := transaction.WithContext(ctx).Create(link).Error; err != nil {
    return nil, false, err
  }
  return plan, true, nil
}

// DeleteByEnrolmentIDs removes the join rows and their plans when the
// enrolments they point at are archived. Plans link 1:1, so a removed
// link leaves its plan unreferenced.
func (r *planRepo) DeleteByEnrolmentIDs(ctx context.Context, tx *gorm.DB, enrolmentIDs []uuid.UUID) error {
  if len(enrolmentIDs) == 0 {
    return nil
  }
  transaction := r.conn(tx)

  var links []*types.EnrolmentPlan
  if err := transaction.WithContext(ctx).
    Where("enrolment_id IN ?", enrolmentIDs).
    Find(&links).Error; err != nil {
    return err
  }
  if len(links) == 0 {
    return nil
  }
  planIDs := make([]uuid.UUID, 0, len(links))
  for _, link := range links {
    planIDs = append(planIDs, link.PlanID)
  }
  if err := transaction.WithContext(ctx).
    Where("enrolment_id IN ?", enrolmentIDs).
    Delete(&types.EnrolmentPlan{}).Error; err != nil {
    return err
  }
  return transaction.WithContext(ctx).
    Where("id IN ?", planIDs).
    Delete(&types.Plan{}).Error
}
