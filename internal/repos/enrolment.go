package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/enroltrack-backend/internal/logger"
  "github.com/yungbote/enroltrack-backend/internal/types"
)

type EnrolmentRepo interface {
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enrolment, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Enrolment, error)
  FindLive(ctx context.Context, tx *gorm.DB, userID, loID, parentEnrolmentID, portalID uuid.UUID) (*types.Enrolment, error)
  FindLiveByUserAndLoIDs(ctx context.Context, tx *gorm.DB, userID, portalID uuid.UUID, loIDs []uuid.UUID) ([]*types.Enrolment, error)
  CreateIfAbsent(ctx context.Context, tx *gorm.DB, candidate *types.Enrolment) (*types.Enrolment, bool, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  Children(ctx context.Context, tx *gorm.DB, parentEnrolmentID uuid.UUID) ([]*types.Enrolment, error)
  Ancestors(ctx context.Context, tx *gorm.DB, node *types.Enrolment) ([]*types.Enrolment, error)
  Subtree(ctx context.Context, tx *gorm.DB, rootID uuid.UUID) ([]*types.Enrolment, error)
  DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type enrolmentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnrolmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrolmentRepo {
  return &enrolmentRepo{db: db, log: baseLog.With("repo", "EnrolmentRepo")}
}

func (r *enrolmentRepo) conn(tx *gorm.DB) *gorm.DB {
  if tx != nil {
    return tx
  }
  return r.db
}

func (r *enrolmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enrolment, error) {
  if id == uuid.Nil {
    return nil, nil
  }
  var row types.Enrolment
  err := r.conn(tx).WithContext(ctx).
    Where("id = ?", id).
    First(&row).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &row, nil
}

func (r *enrolmentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Enrolment, error) {
  var results []*types.Enrolment
  if len(ids) == 0 {
    return results, nil
  }
  if err := r.conn(tx).WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *enrolmentRepo) FindLive(ctx context.Context, tx *gorm.DB, userID, loID, parentEnrolmentID, portalID uuid.UUID) (*types.Enrolment, error) {
  var row types.Enrolment
  err := r.conn(tx).WithContext(ctx).
    Where("user_id = ? AND lo_id = ? AND parent_enrolment_id = ? AND taken_portal_id = ?",
      userID, loID, parentEnrolmentID, portalID).
    First(&row).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &row, nil
}

func (r *enrolmentRepo) FindLiveByUserAndLoIDs(ctx context.Context, tx *gorm.DB, userID, portalID uuid.UUID, loIDs []uuid.UUID) ([]*types.Enrolment, error) {
  var results []*types.Enrolment
  if userID == uuid.Nil || len(loIDs) == 0 {
    return results, nil
  }
  if err := r.conn(tx).WithContext(ctx).
    Where("user_id = ? AND taken_portal_id = ? AND lo_id IN ?", userID, portalID, loIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// CreateIfAbsent inserts the candidate unless a live row already occupies
// its (user, lo, parent, portal) key. Callers hold the advisory lock; the
// unique index backstops races that slip past it.
func (r *enrolmentRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, candidate *types.Enrolment) (*types.Enrolment, bool, error) {
  transaction := r.conn(tx)

  existing, err := r.FindLive(ctx, transaction, candidate.UserID, candidate.LoID, candidate.ParentEnrolmentID, candidate.TakenPortalID)
  if err != nil {
    return nil, false, err
  }
  if existing != nil {
    return existing, false, nil
  }

  if err := transaction.WithContext(ctx).Create(candidate).Error; err != nil {
    if IsUniqueViolation(err, "") {
      existing, ferr := r.FindLive(ctx, transaction, candidate.UserID, candidate.LoID, candidate.ParentEnrolmentID, candidate.TakenPortalID)
      if ferr == nil && existing != nil {
        return existing, false, nil
      }
    }
    return nil, false, err
  }
  return candidate, true, nil
}

// UpdateFields writes the given columns directly. Transition validity is
// the caller's responsibility; this layer does not re-derive completion
// semantics.
func (r *enrolmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  if id == uuid.Nil || len(fields) == 0 {
    return nil
  }
  res := r.conn(tx).WithContext(ctx).
    Model(&types.Enrolment{}).
    Where("id = ?", id).
    Updates(fields)
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return gorm.ErrRecordNotFound
  }
  return nil
}

func (r *enrolmentRepo) Children(ctx context.Context, tx *gorm.DB, parentEnrolmentID uuid.UUID) ([]*types.Enrolment, error) {
  var results []*types.Enrolment
  if parentEnrolmentID == uuid.Nil {
    return results, nil
  }
  if err := r.conn(tx).WithContext(ctx).
    Where("parent_enrolment_id = ?", parentEnrolmentID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// Ancestors walks parent_enrolment_id references nearest-first. The walk
// is bounded by the visited set, so a corrupted parent chain terminates
// with an error instead of looping.
func (r *enrolmentRepo) Ancestors(ctx context.Context, tx *gorm.DB, node *types.Enrolment) ([]*types.Enrolment, error) {
  var chain []*types.Enrolment
  if node == nil {
    return chain, nil
  }
  visited := map[uuid.UUID]bool{node.ID: true}
  current := node
  for current.ParentEnrolmentID != uuid.Nil {
    if visited[current.ParentEnrolmentID] {
      return nil, errors.New("enrolment parent chain contains a cycle")
    }
    parent, err := r.GetByID(ctx, tx, current.ParentEnrolmentID)
    if err != nil {
      return nil, err
    }
    if parent == nil {
      break
    }
    visited[parent.ID] = true
    chain = append(chain, parent)
    current = parent
  }
  return chain, nil
}

// Subtree returns the node and every live descendant, parents before
// children.
func (r *enrolmentRepo) Subtree(ctx context.Context, tx *gorm.DB, rootID uuid.UUID) ([]*types.Enrolment, error) {
  root, err := r.GetByID(ctx, tx, rootID)
  if err != nil {
    return nil, err
  }
  if root == nil {
    return nil, nil
  }
  out := []*types.Enrolment{root}
  frontier := []uuid.UUID{root.ID}
  for len(frontier) > 0 {
    var next []uuid.UUID
    var rows []*types.Enrolment
    if err := r.conn(tx).WithContext(ctx).
      Where("parent_enrolment_id IN ?", frontier).
      Find(&rows).Error; err != nil {
      return nil, err
    }
    for _, row := range rows {
      out = append(out, row)
      next = append(next, row.ID)
    }
    frontier = next
  }
  return out, nil
}

func (r *enrolmentRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  if len(ids) == 0 {
    return nil
  }
  if err := r.conn(tx).WithContext(ctx).
    Where("id IN ?", ids).
    Delete(&types.Enrolment{}).Error; err != nil {
    return err
  }
  return nil
}
