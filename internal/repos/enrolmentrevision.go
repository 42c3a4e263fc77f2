package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/enroltrack-backend/internal/logger"
  "github.com/yungbote/enroltrack-backend/internal/types"
)

// EnrolmentRevisionRepo appends to the revision log. There is no update or
// delete surface; revisions are immutable once written.
type EnrolmentRevisionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, rows []*types.EnrolmentRevision) error
  GetByEnrolmentID(ctx context.Context, tx *gorm.DB, enrolmentID uuid.UUID) ([]*types.EnrolmentRevision, error)
  GetByUserAndLoID(ctx context.Context, tx *gorm.DB, userID, loID uuid.UUID) ([]*types.EnrolmentRevision, error)
}

type enrolmentRevisionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnrolmentRevisionRepo(db *gorm.DB, baseLog *logger.Logger) EnrolmentRevisionRepo {
  return &enrolmentRevisionRepo{db: db, log: baseLog.With("repo", "EnrolmentRevisionRepo")}
}

func (r *enrolmentRevisionRepo) conn(tx *gorm.DB) *gorm.DB {
  if tx != nil {
    return tx
  }
  return r.db
}

func (r *enrolmentRevisionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.EnrolmentRevision) error {
  if len(rows) == 0 {
    return nil
  }
  return r.conn(tx).WithContext(ctx).Create(&rows).Error
}

func (r *enrolmentRevisionRepo) GetByEnrolmentID(ctx context.Context, tx *gorm.DB, enrolmentID uuid.UUID) ([]*types.EnrolmentRevision, error) {
  var results []*types.EnrolmentRevision
  if enrolmentID == uuid.Nil {
    return results, nil
  }
  if err := r.conn(tx).WithContext(ctx).
    Where("enrolment_id = ?", enrolmentID).
    Order("archived_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *enrolmentRevisionRepo) GetByUserAndLoID(ctx context.Context, tx *gorm.DB, userID, loID uuid.UUID) ([]*types.EnrolmentRevision, error) {
  var results []*types.EnrolmentRevision
  if userID == uuid.Nil || loID == uuid.Nil {
    return results, nil
  }
  if err := r.conn(tx).WithContext(ctx).
    Where("user_id = ? AND lo_id = ?", userID, loID).
    Order("archived_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
