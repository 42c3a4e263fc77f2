package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/hierarchy"
	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

// DueDateService resolves the suggested completion date for an enrolment
// by walking its lineage, nearest rule wins. It only reads; identical
// lineage and rules always produce the identical date.
type DueDateService interface {
	Resolve(ctx context.Context, tx *gorm.DB, lineage []*types.Enrolment) (*time.Time, error)
}

type dueDateService struct {
	log    *logger.Logger
	reader hierarchy.Reader
}

func NewDueDateService(baseLog *logger.Logger, reader hierarchy.Reader) DueDateService {
	return &dueDateService{
		log:    baseLog.With("service", "DueDateService"),
		reader: reader,
	}
}

// Resolve walks lineage (self first, course root last). The first level
// that carries a completion rule decides; levels above it are only
// consulted when the rule's anchor date has to be searched further up.
// A lineage without any rule yields no due date.
func (s *dueDateService) Resolve(ctx context.Context, tx *gorm.DB, lineage []*types.Enrolment) (*time.Time, error) {
	if len(lineage) == 0 {
		return nil, nil
	}
	for i, node := range lineage {
		rule, err := s.reader.GetCompletionRule(ctx, tx, node.LoID)
		if err != nil {
			return nil, err
		}
		if rule == nil {
			continue
		}
		return s.evaluate(ctx, tx, rule, lineage, i)
	}
	return nil, nil
}

func (s *dueDateService) evaluate(ctx context.Context, tx *gorm.DB, rule *hierarchy.Rule, lineage []*types.Enrolment, level int) (*time.Time, error) {
	self := lineage[0]
	switch rule.Kind {
	case hierarchy.RuleFixedDate:
		return normalize(rule.Date), nil

	case hierarchy.RuleDurationFromSelf:
		if self.StartDate == nil {
			return nil, nil
		}
		return normalize(rule.Duration.AddTo(*self.StartDate)), nil

	case hierarchy.RuleDurationFromParent:
		// Anchor search is independent of the rule search: start at the
		// direct parent and walk up until an ancestor has a start date.
		for _, ancestor := range lineage[1:] {
			if ancestor.StartDate != nil {
				return normalize(rule.Duration.AddTo(*ancestor.StartDate)), nil
			}
		}
		return nil, nil

	case hierarchy.RuleDurationFromCourseRoot:
		root, err := s.courseRoot(ctx, tx, lineage)
		if err != nil {
			return nil, err
		}
		if root == nil || root.StartDate == nil {
			return nil, nil
		}
		return normalize(rule.Duration.AddTo(*root.StartDate)), nil

	default:
		s.log.Warn("unhandled completion rule kind", "kind", rule.Kind)
		return nil, nil
	}
}

// courseRoot picks the top-most course-level ancestor, falling back to the
// top of the lineage when no level is typed as a course.
func (s *dueDateService) courseRoot(ctx context.Context, tx *gorm.DB, lineage []*types.Enrolment) (*types.Enrolment, error) {
	for i := len(lineage) - 1; i >= 0; i-- {
		lo, err := s.reader.Get(ctx, tx, lineage[i].LoID)
		if err != nil {
			continue
		}
		if lo.Type == types.LoTypeCourse {
			return lineage[i], nil
		}
	}
	return lineage[len(lineage)-1], nil
}

func normalize(t time.Time) *time.Time {
	out := t.UTC().Truncate(time.Second)
	return &out
}
