package hierarchy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

// Reader is the read-only view of the content graph the enrolment core
// consumes: parent/child edges, elective membership, sequence weights,
// dependency edges and completion rules.
type Reader interface {
	Get(ctx context.Context, tx *gorm.DB, loID uuid.UUID) (*types.LearningObject, error)
	GetChildren(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]*types.LearningObjectEdge, error)
	GetElectiveGroup(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]uuid.UUID, int, error)
	GetSequenceWeight(ctx context.Context, tx *gorm.DB, parentLoID, childLoID uuid.UUID) (int, error)
	GetDependencies(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]uuid.UUID, error)
	GetDependants(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]uuid.UUID, error)
	GetCompletionRule(ctx context.Context, tx *gorm.DB, loID uuid.UUID) (*Rule, error)
	ActiveSet(ctx context.Context, tx *gorm.DB, loIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type gormReader struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReader(db *gorm.DB, baseLog *logger.Logger) Reader {
	return &gormReader{db: db, log: baseLog.With("reader", "HierarchyReader")}
}

func (r *gormReader) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *gormReader) Get(ctx context.Context, tx *gorm.DB, loID uuid.UUID) (*types.LearningObject, error) {
	if loID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var lo types.LearningObject
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", loID).
		First(&lo).Error; err != nil {
		return nil, err
	}
	return &lo, nil
}

func (r *gormReader) GetChildren(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]*types.LearningObjectEdge, error) {
	var edges []*types.LearningObjectEdge
	if loID == uuid.Nil {
		return edges, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("parent_lo_id = ?", loID).
		Order("weight ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// GetElectiveGroup returns the elective members among loID's children and
// the parent's required count. An LO with no elective edges has no group.
func (r *gormReader) GetElectiveGroup(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]uuid.UUID, int, error) {
	edges, err := r.GetChildren(ctx, tx, loID)
	if err != nil {
		return nil, 0, err
	}
	var members []uuid.UUID
	for _, e := range edges {
		if e.Elective {
			members = append(members, e.ChildLoID)
		}
	}
	if len(members) == 0 {
		return nil, 0, nil
	}
	lo, err := r.Get(ctx, tx, loID)
	if err != nil {
		return nil, 0, err
	}
	required := lo.ElectiveNumber
	if required <= 0 || required > len(members) {
		required = len(members)
	}
	return members, required, nil
}

func (r *gormReader) GetSequenceWeight(ctx context.Context, tx *gorm.DB, parentLoID, childLoID uuid.UUID) (int, error) {
	var edge types.LearningObjectEdge
	if err := r.conn(tx).WithContext(ctx).
		Where("parent_lo_id = ? AND child_lo_id = ?", parentLoID, childLoID).
		First(&edge).Error; err != nil {
		return 0, err
	}
	return edge.Weight, nil
}

func (r *gormReader) GetDependencies(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]uuid.UUID, error) {
	var rows []*types.LearningObjectDependency
	if loID == uuid.Nil {
		return nil, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("lo_id = ?", loID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.DependsOnLoID)
	}
	return out, nil
}

func (r *gormReader) GetDependants(ctx context.Context, tx *gorm.DB, loID uuid.UUID) ([]uuid.UUID, error) {
	var rows []*types.LearningObjectDependency
	if loID == uuid.Nil {
		return nil, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("depends_on_lo_id = ?", loID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.LoID)
	}
	return out, nil
}

func (r *gormReader) GetCompletionRule(ctx context.Context, tx *gorm.DB, loID uuid.UUID) (*Rule, error) {
	var row types.CompletionRule
	err := r.conn(tx).WithContext(ctx).
		Where("lo_id = ?", loID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rule, err := ParseRule(row.Type, row.Value)
	if err != nil {
		r.log.Warn("skipping malformed completion rule", "lo_id", loID, "error", err)
		return nil, nil
	}
	return rule, nil
}

// ActiveSet reports which of the given LOs are live (published). Missing
// ids are simply absent from the map.
func (r *gormReader) ActiveSet(ctx context.Context, tx *gorm.DB, loIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(loIDs))
	if len(loIDs) == 0 {
		return out, nil
	}
	var rows []*types.LearningObject
	if err := r.conn(tx).WithContext(ctx).
		Where("id IN ?", loIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, lo := range rows {
		out[lo.ID] = lo.Published
	}
	return out, nil
}
