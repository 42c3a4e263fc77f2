package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/hierarchy"
	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/repos"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

// PropagationService recomputes ancestor completion status after a
// descendant changes, inside the caller's transaction. Any failure aborts
// the whole status change: a leaf update must not commit if its mandated
// ancestor update cannot.
type PropagationService interface {
	// OnStatusChanged walks node's ancestors nearest-first, applying
	// derived statuses until one ancestor is unchanged. It also activates
	// pending dependants of every enrolment that reached completed.
	OnStatusChanged(ctx context.Context, tx *gorm.DB, node *types.Enrolment, actorID uuid.UUID) ([]Event, error)
	// OnChildRemoved recomputes the former parent itself, then its
	// ancestors, after a child was archived or deleted.
	OnChildRemoved(ctx context.Context, tx *gorm.DB, parent *types.Enrolment, actorID uuid.UUID) ([]Event, error)
}

type propagationService struct {
	log       *logger.Logger
	reader    hierarchy.Reader
	enrolRepo repos.EnrolmentRepo
}

func NewPropagationService(baseLog *logger.Logger, reader hierarchy.Reader, enrolRepo repos.EnrolmentRepo) PropagationService {
	return &propagationService{
		log:       baseLog.With("service", "PropagationService"),
		reader:    reader,
		enrolRepo: enrolRepo,
	}
}

func (s *propagationService) OnStatusChanged(ctx context.Context, tx *gorm.DB, node *types.Enrolment, actorID uuid.UUID) ([]Event, error) {
	chain, err := s.enrolRepo.Ancestors(ctx, tx, node)
	if err != nil {
		return nil, err
	}
	completed := []*types.Enrolment{}
	if node.Status == types.StatusCompleted {
		completed = append(completed, node)
	}
	events, newlyCompleted, err := s.recomputeChain(ctx, tx, chain, actorID)
	if err != nil {
		return nil, err
	}
	completed = append(completed, newlyCompleted...)

	for _, done := range completed {
		activationEvents, err := s.activateDependants(ctx, tx, done, actorID)
		if err != nil {
			return nil, err
		}
		events = append(events, activationEvents...)
	}
	return events, nil
}

func (s *propagationService) OnChildRemoved(ctx context.Context, tx *gorm.DB, parent *types.Enrolment, actorID uuid.UUID) ([]Event, error) {
	if parent == nil {
		return nil, nil
	}
	ancestors, err := s.enrolRepo.Ancestors(ctx, tx, parent)
	if err != nil {
		return nil, err
	}
	chain := append([]*types.Enrolment{parent}, ancestors...)
	events, newlyCompleted, err := s.recomputeChain(ctx, tx, chain, actorID)
	if err != nil {
		return nil, err
	}
	for _, done := range newlyCompleted {
		activationEvents, err := s.activateDependants(ctx, tx, done, actorID)
		if err != nil {
			return nil, err
		}
		events = append(events, activationEvents...)
	}
	return events, nil
}

// recomputeChain applies derived statuses nearest-first, stopping at the
// first ancestor whose derived status matches its stored one. Propagation
// is lazy and idempotent: rerunning it on an unchanged tree writes
// nothing.
func (s *propagationService) recomputeChain(ctx context.Context, tx *gorm.DB, chain []*types.Enrolment, actorID uuid.UUID) ([]Event, []*types.Enrolment, error) {
	var events []Event
	var newlyCompleted []*types.Enrolment

	for _, ancestor := range chain {
		derived, decisive, err := s.deriveStatus(ctx, tx, ancestor)
		if err != nil {
			return nil, nil, err
		}
		if !decisive || derived == ancestor.Status {
			break
		}
		// Completion never regresses by propagation. The ancestor is
		// left untouched, and since nothing changed here there is
		// nothing further up to recompute.
		if types.TerminalStatus(ancestor.Status) && derived != types.StatusCompleted {
			break
		}

		oldStatus := ancestor.Status
		if err := s.applyStatus(ctx, tx, ancestor, derived, actorID); err != nil {
			return nil, nil, err
		}
		events = append(events, NewEnrolmentUpdatedEvent(ancestor, oldStatus, derived))
		if derived == types.StatusCompleted {
			newlyCompleted = append(newlyCompleted, ancestor)
		}
	}
	return events, newlyCompleted, nil
}

// deriveStatus computes the ancestor's status from the catalog: every
// active mandatory child LO must have a completed live enrolment, and the
// elective group must meet its threshold. A catalog child the learner
// never enrolled in counts as not completed. Returns decisive=false when
// the LO has no active catalog children to judge by.
func (s *propagationService) deriveStatus(ctx context.Context, tx *gorm.DB, ancestor *types.Enrolment) (types.EnrolmentStatus, bool, error) {
	edges, err := s.reader.GetChildren(ctx, tx, ancestor.LoID)
	if err != nil {
		return "", false, err
	}
	if len(edges) == 0 {
		return "", false, nil
	}

	loIDs := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		loIDs = append(loIDs, edge.ChildLoID)
	}
	active, err := s.reader.ActiveSet(ctx, tx, loIDs)
	if err != nil {
		return "", false, err
	}

	electiveMembers, electiveRequired, err := s.reader.GetElectiveGroup(ctx, tx, ancestor.LoID)
	if err != nil {
		return "", false, err
	}
	electiveSet := make(map[uuid.UUID]bool, len(electiveMembers))
	for _, id := range electiveMembers {
		electiveSet[id] = true
	}

	children, err := s.enrolRepo.Children(ctx, tx, ancestor.ID)
	if err != nil {
		return "", false, err
	}
	completed := make(map[uuid.UUID]bool, len(children))
	for _, child := range children {
		if child.Status == types.StatusCompleted {
			completed[child.LoID] = true
		}
	}

	sawActive := false
	completedElectives := 0
	for _, edge := range edges {
		if !active[edge.ChildLoID] {
			continue
		}
		sawActive = true
		if electiveSet[edge.ChildLoID] {
			if completed[edge.ChildLoID] {
				completedElectives++
			}
			continue
		}
		if !completed[edge.ChildLoID] {
			return s.incompleteStatus(ancestor), true, nil
		}
	}
	if !sawActive {
		return "", false, nil
	}
	if len(electiveMembers) > 0 && completedElectives < electiveRequired {
		return s.incompleteStatus(ancestor), true, nil
	}
	return types.StatusCompleted, true, nil
}

// A pending ancestor stays pending while incomplete; anything else shows
// in-progress.
func (s *propagationService) incompleteStatus(ancestor *types.Enrolment) types.EnrolmentStatus {
	if ancestor.Status == types.StatusPending {
		return types.StatusPending
	}
	return types.StatusInProgress
}

func (s *propagationService) applyStatus(ctx context.Context, tx *gorm.DB, ancestor *types.Enrolment, derived types.EnrolmentStatus, actorID uuid.UUID) error {
	now := time.Now().UTC()
	data := types.AppendHistory(ancestor.Data, types.HistoryEntry{
		ActorID:    actorID,
		FromStatus: ancestor.Status,
		ToStatus:   derived,
		At:         now,
		Note:       "propagated",
	})
	fields := map[string]interface{}{
		"status": derived,
		"data":   data,
	}
	if derived == types.StatusCompleted {
		fields["end_date"] = now
		if ancestor.Pass == types.PassUnset {
			lo, err := s.reader.Get(ctx, tx, ancestor.LoID)
			if err == nil && lo.PassRequired {
				fields["pass"] = types.PassPassed
				ancestor.Pass = types.PassPassed
			}
		}
		ancestor.EndDate = &now
	} else {
		fields["end_date"] = nil
		ancestor.EndDate = nil
	}
	if err := s.enrolRepo.UpdateFields(ctx, tx, ancestor.ID, fields); err != nil {
		return err
	}
	ancestor.Data = data
	ancestor.Status = derived
	return nil
}

// activateDependants moves pending enrolments whose last dependency just
// completed into not_started. Checked here, on the dependency's
// completion, never polled.
func (s *propagationService) activateDependants(ctx context.Context, tx *gorm.DB, done *types.Enrolment, actorID uuid.UUID) ([]Event, error) {
	dependantLoIDs, err := s.reader.GetDependants(ctx, tx, done.LoID)
	if err != nil {
		return nil, err
	}
	if len(dependantLoIDs) == 0 {
		return nil, nil
	}

	rows, err := s.enrolRepo.FindLiveByUserAndLoIDs(ctx, tx, done.UserID, done.TakenPortalID, dependantLoIDs)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, row := range rows {
		if row.Status != types.StatusPending {
			continue
		}
		satisfied, err := s.dependenciesSatisfied(ctx, tx, row)
		if err != nil {
			return nil, err
		}
		if !satisfied {
			continue
		}
		fields := map[string]interface{}{
			"status": types.StatusNotStarted,
			"data": types.AppendHistory(row.Data, types.HistoryEntry{
				ActorID:    actorID,
				FromStatus: types.StatusPending,
				ToStatus:   types.StatusNotStarted,
				At:         time.Now().UTC(),
				Note:       "dependency completed",
			}),
		}
		if err := s.enrolRepo.UpdateFields(ctx, tx, row.ID, fields); err != nil {
			return nil, err
		}
		events = append(events, NewEnrolmentUpdatedEvent(row, types.StatusPending, types.StatusNotStarted))
		row.Status = types.StatusNotStarted
	}
	return events, nil
}

func (s *propagationService) dependenciesSatisfied(ctx context.Context, tx *gorm.DB, row *types.Enrolment) (bool, error) {
	deps, err := s.reader.GetDependencies(ctx, tx, row.LoID)
	if err != nil {
		return false, err
	}
	if len(deps) == 0 {
		return true, nil
	}
	depRows, err := s.enrolRepo.FindLiveByUserAndLoIDs(ctx, tx, row.UserID, row.TakenPortalID, deps)
	if err != nil {
		return false, err
	}
	completed := make(map[uuid.UUID]bool, len(depRows))
	for _, depRow := range depRows {
		if depRow.Status == types.StatusCompleted {
			completed[depRow.LoID] = true
		}
	}
	for _, dep := range deps {
		if !completed[dep] {
			return false, nil
		}
	}
	return true, nil
}
