package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/hierarchy"
	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/repos"
	"github.com/yungbote/enroltrack-backend/internal/requestdata"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

type CreateInput struct {
	LoID              uuid.UUID
	ParentEnrolmentID uuid.UUID
	ReEnrol           bool
	Start             bool
	AssignerID        uuid.UUID
}

type UpdateInput struct {
	EnrolmentID uuid.UUID
	Status      *types.EnrolmentStatus
	Pass        *types.PassState
	Result      *float64
	StartDate   *time.Time
	EndDate     *time.Time
	DueDate     *time.Time
}

// BulkItemResult reports one item's outcome of a bulk creation. Items are
// independent: one failure neither blocks nor rolls back the others.
type BulkItemResult struct {
	LoID      uuid.UUID        `json:"lo_id"`
	Enrolment *types.Enrolment `json:"enrolment,omitempty"`
	Err       error            `json:"-"`
}

// EnrolmentService orchestrates the enrolment lifecycle: create, re-enrol
// (archive + recreate), update and archive, calling the due-date resolver
// and the propagation engine and emitting domain events after commit.
type EnrolmentService interface {
	Create(ctx context.Context, in CreateInput) (*types.Enrolment, error)
	BulkCreate(ctx context.Context, items []CreateInput) []BulkItemResult
	ReEnrol(ctx context.Context, loID, parentEnrolmentID uuid.UUID) (*types.Enrolment, error)
	Update(ctx context.Context, in UpdateInput) (*types.Enrolment, error)
	Archive(ctx context.Context, enrolmentID uuid.UUID, cascade, createRevision bool) error
	Get(ctx context.Context, enrolmentID uuid.UUID) (*types.Enrolment, error)
	History(ctx context.Context, loID uuid.UUID) ([]*types.EnrolmentRevision, error)
}

type enrolmentService struct {
	db           *gorm.DB
	log          *logger.Logger
	reader       hierarchy.Reader
	enrolRepo    repos.EnrolmentRepo
	revisionRepo repos.EnrolmentRevisionRepo
	dueDates     DueDateService
	propagation  PropagationService
	plans        PlanService
	publisher    EventPublisher
	access       AccessGate
	payment      PaymentGate
}

func NewEnrolmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	reader hierarchy.Reader,
	enrolRepo repos.EnrolmentRepo,
	revisionRepo repos.EnrolmentRevisionRepo,
	dueDates DueDateService,
	propagation PropagationService,
	plans PlanService,
	publisher EventPublisher,
	access AccessGate,
	payment PaymentGate,
) EnrolmentService {
	return &enrolmentService{
		db:           db,
		log:          baseLog.With("service", "EnrolmentService"),
		reader:       reader,
		enrolRepo:    enrolRepo,
		revisionRepo: revisionRepo,
		dueDates:     dueDates,
		propagation:  propagation,
		plans:        plans,
		publisher:    publisher,
		access:       access,
		payment:      payment,
	}
}

// runTx executes fn in a transaction, retrying exactly once on transient
// store failures with a fresh transaction (and therefore a fresh advisory
// lock acquisition). Domain errors are never retried.
func (s *enrolmentService) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil || domainError(err) {
		return err
	}
	s.log.Warn("transaction failed, retrying once", "error", err)
	retryErr := s.db.WithContext(ctx).Transaction(fn)
	if retryErr == nil {
		return nil
	}
	if domainError(retryErr) {
		return retryErr
	}
	return &StoreFailureError{Err: retryErr}
}

func (s *enrolmentService) Get(ctx context.Context, enrolmentID uuid.UUID) (*types.Enrolment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthorized
	}
	node, err := s.enrolRepo.GetByID(ctx, nil, enrolmentID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("enrolment %s: %w", enrolmentID, ErrNotFound)
	}
	if node.UserID != rd.UserID && !rd.Privileged() {
		return nil, ErrNotAuthorized
	}
	return node, nil
}

// History returns the acting learner's archived revisions for one LO,
// oldest first. Live state is Get's business.
func (s *enrolmentService) History(ctx context.Context, loID uuid.UUID) ([]*types.EnrolmentRevision, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthorized
	}
	return s.revisionRepo.GetByUserAndLoID(ctx, nil, rd.UserID, loID)
}

func (s *enrolmentService) Create(ctx context.Context, in CreateInput) (*types.Enrolment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthorized
	}

	lo, err := s.reader.Get(ctx, nil, in.LoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("learning object %s: %w", in.LoID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !lo.Published {
		return nil, fmt.Errorf("learning object %s is not published: %w", in.LoID, ErrNotFound)
	}
	if lo.Commercial {
		ok, err := s.payment.CanEnrol(ctx, rd.UserID, lo.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPaymentRequired
		}
	}

	var node *types.Enrolment
	var events []Event
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		node, events = nil, nil
		var txErr error
		node, events, txErr = s.createLocked(ctx, tx, rd, in, lo)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events...)
	return node, nil
}

func (s *enrolmentService) createLocked(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, in CreateInput, lo *types.LearningObject) (*types.Enrolment, []Event, error) {
	if err := repos.AdvisoryXactLock(tx, in.LoID, rd.UserID, rd.PortalID); err != nil {
		return nil, nil, err
	}

	parent, err := s.loadParent(ctx, tx, rd, in.ParentEnrolmentID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.checkSequence(ctx, tx, rd, parent, lo); err != nil {
		return nil, nil, err
	}

	depsOK, _, err := s.dependenciesCompleted(ctx, tx, rd, lo.ID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	status := types.StatusNotStarted
	var startDate *time.Time
	if in.Start {
		status = types.StatusInProgress
		startDate = &now
	}
	if !depsOK {
		// Created, but gated: becomes eligible once the dependency's
		// completion propagates.
		status = types.StatusPending
		startDate = nil
	}

	candidate := &types.Enrolment{
		ID:            uuid.New(),
		ProfileID:     rd.ProfileID,
		UserID:        rd.UserID,
		LoID:          lo.ID,
		TakenPortalID: rd.PortalID,
		Status:        status,
		StartDate:     startDate,
		AssignerID:    in.AssignerID,
		Data: types.AppendHistory(nil, types.HistoryEntry{
			ActorID:  rd.UserID,
			ToStatus: status,
			At:       now,
			Note:     "created",
		}),
	}
	if in.AssignerID != uuid.Nil {
		candidate.AssignDate = &now
	}
	if parent != nil {
		candidate.ParentEnrolmentID = parent.ID
		candidate.ParentLoID = parent.LoID
	}

	node, created, err := s.enrolRepo.CreateIfAbsent(ctx, tx, candidate)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		if !in.ReEnrol {
			return nil, nil, &ConflictError{ExistingID: node.ID}
		}
		return s.reEnrolLocked(ctx, tx, rd, node, candidate)
	}
	return s.finishCreate(ctx, tx, rd, node, parent)
}

// finishCreate resolves the due date, syncs the plan and runs propagation
// for a freshly inserted node.
func (s *enrolmentService) finishCreate(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, node *types.Enrolment, parent *types.Enrolment) (*types.Enrolment, []Event, error) {
	lineage := []*types.Enrolment{node}
	if parent != nil {
		grandparents, err := s.enrolRepo.Ancestors(ctx, tx, parent)
		if err != nil {
			return nil, nil, err
		}
		lineage = append(lineage, parent)
		lineage = append(lineage, grandparents...)
	}

	var events []Event
	due, err := s.dueDates.Resolve(ctx, tx, lineage)
	if err != nil {
		return nil, nil, err
	}
	if due != nil {
		if err := s.enrolRepo.UpdateFields(ctx, tx, node.ID, map[string]interface{}{"due_date": *due}); err != nil {
			return nil, nil, err
		}
		node.DueDate = due
		planEvent, err := s.plans.SyncDueDate(ctx, tx, node, due)
		if err != nil {
			return nil, nil, err
		}
		if planEvent != nil {
			events = append(events, *planEvent)
		}
	}

	events = append([]Event{NewEnrolmentCreatedEvent(node)}, events...)

	propEvents, err := s.propagation.OnStatusChanged(ctx, tx, node, rd.UserID)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, propEvents...)
	return node, events, nil
}

func (s *enrolmentService) BulkCreate(ctx context.Context, items []CreateInput) []BulkItemResult {
	results := make([]BulkItemResult, 0, len(items))
	for _, item := range items {
		node, err := s.Create(ctx, item)
		results = append(results, BulkItemResult{
			LoID:      item.LoID,
			Enrolment: node,
			Err:       err,
		})
	}
	return results
}

func (s *enrolmentService) ReEnrol(ctx context.Context, loID, parentEnrolmentID uuid.UUID) (*types.Enrolment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthorized
	}
	lo, err := s.reader.Get(ctx, nil, loID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("learning object %s: %w", loID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var node *types.Enrolment
	var events []Event
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		node, events = nil, nil
		if err := repos.AdvisoryXactLock(tx, loID, rd.UserID, rd.PortalID); err != nil {
			return err
		}
		existing, err := s.enrolRepo.FindLive(ctx, tx, rd.UserID, lo.ID, parentEnrolmentID, rd.PortalID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("no live enrolment for lo %s: %w", loID, ErrNotFound)
		}
		now := time.Now().UTC()
		candidate := &types.Enrolment{
			ID:                uuid.New(),
			ProfileID:         rd.ProfileID,
			UserID:            rd.UserID,
			LoID:              lo.ID,
			ParentLoID:        existing.ParentLoID,
			ParentEnrolmentID: existing.ParentEnrolmentID,
			TakenPortalID:     rd.PortalID,
			Status:            types.StatusNotStarted,
			Data: types.AppendHistory(nil, types.HistoryEntry{
				ActorID:  rd.UserID,
				ToStatus: types.StatusNotStarted,
				At:       now,
				Note:     "re-enrolled",
			}),
		}
		var txErr error
		node, events, txErr = s.reEnrolLocked(ctx, tx, rd, existing, candidate)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events...)
	return node, nil
}

// reEnrolLocked archives the existing node's whole subtree into revisions
// and inserts the replacement, all under the advisory lock the caller
// already holds: there is no window where neither or both nodes are live.
func (s *enrolmentService) reEnrolLocked(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, existing *types.Enrolment, candidate *types.Enrolment) (*types.Enrolment, []Event, error) {
	subtree, err := s.enrolRepo.Subtree(ctx, tx, existing.ID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	ids := make([]uuid.UUID, 0, len(subtree))
	revisions := make([]*types.EnrolmentRevision, 0, len(subtree))
	for _, row := range subtree {
		ids = append(ids, row.ID)
		revisions = append(revisions, types.NewRevision(row, rd.UserID, now))
	}
	if err := s.revisionRepo.Create(ctx, tx, revisions); err != nil {
		return nil, nil, err
	}
	if err := s.enrolRepo.DeleteByIDs(ctx, tx, ids); err != nil {
		return nil, nil, err
	}
	if err := s.plans.RemoveForEnrolments(ctx, tx, ids); err != nil {
		return nil, nil, err
	}

	node, created, err := s.enrolRepo.CreateIfAbsent(ctx, tx, candidate)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		// The key was just vacated inside this transaction; a survivor
		// here means the archive did not take effect.
		return nil, nil, fmt.Errorf("re-enrol: live row survived archive for lo %s", candidate.LoID)
	}

	var parent *types.Enrolment
	if node.ParentEnrolmentID != uuid.Nil {
		parent, err = s.enrolRepo.GetByID(ctx, tx, node.ParentEnrolmentID)
		if err != nil {
			return nil, nil, err
		}
	}
	return s.finishCreate(ctx, tx, rd, node, parent)
}

func (s *enrolmentService) Update(ctx context.Context, in UpdateInput) (*types.Enrolment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthorized
	}

	var node *types.Enrolment
	var events []Event
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		node, events = nil, nil
		var txErr error
		node, events, txErr = s.updateLocked(ctx, tx, rd, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events...)
	return node, nil
}

func (s *enrolmentService) updateLocked(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, in UpdateInput) (*types.Enrolment, []Event, error) {
	node, err := s.enrolRepo.GetByID(ctx, tx, in.EnrolmentID)
	if err != nil {
		return nil, nil, err
	}
	if node == nil {
		return nil, nil, fmt.Errorf("enrolment %s: %w", in.EnrolmentID, ErrNotFound)
	}
	if !s.access.CanUpdate(ctx, rd, node) {
		return nil, nil, ErrNotAuthorized
	}
	if err := repos.AdvisoryXactLock(tx, node.LoID, node.UserID, node.TakenPortalID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	oldStatus := node.Status
	statusChanged := in.Status != nil && *in.Status != node.Status
	fields := map[string]interface{}{}

	if statusChanged {
		newStatus := *in.Status
		if !types.ValidStatus(newStatus) {
			return nil, nil, &InvalidTransitionError{From: node.Status, To: newStatus}
		}
		if !types.CanTransition(node.Status, newStatus, rd.Privileged()) {
			return nil, nil, &InvalidTransitionError{From: node.Status, To: newStatus}
		}
		// Leaving pending by hand still needs the dependency satisfied.
		if node.Status == types.StatusPending && newStatus != types.StatusPending {
			ok, blockedBy, err := s.dependenciesCompleted(ctx, tx, rd, node.LoID)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				return nil, nil, &DependencyNotMetError{LoID: node.LoID, DependsOnLoID: blockedBy}
			}
		}

		fields["status"] = newStatus
		switch newStatus {
		case types.StatusCompleted:
			end := now
			if in.EndDate != nil {
				end = in.EndDate.UTC()
			}
			fields["end_date"] = end
			node.EndDate = &end
			if node.StartDate == nil {
				fields["start_date"] = now
				node.StartDate = &now
			}
		case types.StatusInProgress:
			fields["end_date"] = nil
			node.EndDate = nil
			if node.StartDate == nil {
				start := now
				if in.StartDate != nil {
					start = in.StartDate.UTC()
				}
				fields["start_date"] = start
				node.StartDate = &start
			}
		default:
			// end_date is only ever set on completed rows.
			fields["end_date"] = nil
			node.EndDate = nil
		}
		data := types.AppendHistory(node.Data, types.HistoryEntry{
			ActorID:    rd.UserID,
			FromStatus: oldStatus,
			ToStatus:   newStatus,
			At:         now,
		})
		fields["data"] = data
		node.Data = data
		node.Status = newStatus
	}

	// Explicit pass/result in the request take precedence over anything
	// derived later by propagation.
	if in.Pass != nil {
		fields["pass"] = *in.Pass
		node.Pass = *in.Pass
	}
	if in.Result != nil {
		fields["result"] = *in.Result
		node.Result = in.Result
	}
	if in.StartDate != nil && !statusChanged {
		start := in.StartDate.UTC()
		fields["start_date"] = start
		node.StartDate = &start
	}

	var events []Event
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		fields["due_date"] = due
		node.DueDate = &due
		planEvent, err := s.plans.SyncDueDate(ctx, tx, node, &due)
		if err != nil {
			return nil, nil, err
		}
		if planEvent != nil {
			events = append(events, *planEvent)
		}
	}

	if len(fields) == 0 {
		return node, nil, nil
	}
	if err := s.enrolRepo.UpdateFields(ctx, tx, node.ID, fields); err != nil {
		return nil, nil, err
	}

	if statusChanged {
		events = append(events, NewEnrolmentUpdatedEvent(node, oldStatus, node.Status))
		propEvents, err := s.propagation.OnStatusChanged(ctx, tx, node, rd.UserID)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, propEvents...)
	}
	return node, events, nil
}

func (s *enrolmentService) Archive(ctx context.Context, enrolmentID uuid.UUID, cascade, createRevision bool) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return ErrNotAuthorized
	}

	var events []Event
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		events = nil
		node, err := s.enrolRepo.GetByID(ctx, tx, enrolmentID)
		if err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("enrolment %s: %w", enrolmentID, ErrNotFound)
		}
		if !s.access.CanArchive(ctx, rd, node) {
			return ErrNotAuthorized
		}
		if err := repos.AdvisoryXactLock(tx, node.LoID, node.UserID, node.TakenPortalID); err != nil {
			return err
		}

		rows := []*types.Enrolment{node}
		if cascade {
			rows, err = s.enrolRepo.Subtree(ctx, tx, node.ID)
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		ids := make([]uuid.UUID, 0, len(rows))
		revisions := make([]*types.EnrolmentRevision, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			revisions = append(revisions, types.NewRevision(row, rd.UserID, now))
		}
		if createRevision {
			if err := s.revisionRepo.Create(ctx, tx, revisions); err != nil {
				return err
			}
		}
		if err := s.enrolRepo.DeleteByIDs(ctx, tx, ids); err != nil {
			return err
		}
		if err := s.plans.RemoveForEnrolments(ctx, tx, ids); err != nil {
			return err
		}

		// Removing a (possibly completed) child can change the former
		// parent's derived status.
		if node.ParentEnrolmentID != uuid.Nil {
			parent, err := s.enrolRepo.GetByID(ctx, tx, node.ParentEnrolmentID)
			if err != nil {
				return err
			}
			if parent != nil {
				propEvents, err := s.propagation.OnChildRemoved(ctx, tx, parent, rd.UserID)
				if err != nil {
					return err
				}
				events = append(events, propEvents...)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(ctx, events...)
	return nil
}

func (s *enrolmentService) loadParent(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, parentEnrolmentID uuid.UUID) (*types.Enrolment, error) {
	if parentEnrolmentID == uuid.Nil {
		return nil, nil
	}
	parent, err := s.enrolRepo.GetByID(ctx, tx, parentEnrolmentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("parent enrolment %s: %w", parentEnrolmentID, ErrNotFound)
	}
	if parent.UserID != rd.UserID || parent.TakenPortalID != rd.PortalID {
		return nil, fmt.Errorf("parent enrolment %s belongs to another context: %w", parentEnrolmentID, ErrNotFound)
	}
	return parent, nil
}

// checkSequence enforces ordering when the parent LO requires it: every
// lower-weighted mandatory sibling must be completed, and a fully
// lower-weighted elective group must meet its threshold, before this LO
// can be enrolled.
func (s *enrolmentService) checkSequence(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, parent *types.Enrolment, lo *types.LearningObject) error {
	if parent == nil {
		return nil
	}
	parentLo, err := s.reader.Get(ctx, tx, parent.LoID)
	if err != nil {
		return err
	}
	if !parentLo.RequiredSequence {
		return nil
	}

	myWeight, err := s.reader.GetSequenceWeight(ctx, tx, parentLo.ID, lo.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Not a catalog child of the parent; nothing to order against.
		return nil
	}
	if err != nil {
		return err
	}
	edges, err := s.reader.GetChildren(ctx, tx, parentLo.ID)
	if err != nil {
		return err
	}

	electiveMembers, electiveRequired, err := s.reader.GetElectiveGroup(ctx, tx, parentLo.ID)
	if err != nil {
		return err
	}
	electiveSet := make(map[uuid.UUID]bool, len(electiveMembers))
	for _, id := range electiveMembers {
		electiveSet[id] = true
	}

	var lowerMandatory, lowerElective []uuid.UUID
	electiveGroupFullyLower := len(electiveMembers) > 0
	for _, e := range edges {
		if e.ChildLoID == lo.ID {
			continue
		}
		if electiveSet[e.ChildLoID] && e.Weight >= myWeight {
			electiveGroupFullyLower = false
		}
		if e.Weight >= myWeight {
			continue
		}
		if electiveSet[e.ChildLoID] {
			lowerElective = append(lowerElective, e.ChildLoID)
		} else {
			lowerMandatory = append(lowerMandatory, e.ChildLoID)
		}
	}
	if len(lowerMandatory) == 0 && len(lowerElective) == 0 {
		return nil
	}

	lowerIDs := append(append([]uuid.UUID{}, lowerMandatory...), lowerElective...)
	active, err := s.reader.ActiveSet(ctx, tx, lowerIDs)
	if err != nil {
		return err
	}
	rows, err := s.enrolRepo.FindLiveByUserAndLoIDs(ctx, tx, rd.UserID, rd.PortalID, lowerIDs)
	if err != nil {
		return err
	}
	completed := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if row.Status == types.StatusCompleted {
			completed[row.LoID] = true
		}
	}

	for _, sibling := range lowerMandatory {
		if !active[sibling] {
			continue
		}
		if !completed[sibling] {
			return &SequenceViolationError{LoID: lo.ID, BlockedByID: sibling}
		}
	}

	if electiveGroupFullyLower && len(lowerElective) > 0 {
		completedElectives := 0
		var firstIncomplete uuid.UUID
		for _, sibling := range lowerElective {
			if !active[sibling] {
				continue
			}
			if completed[sibling] {
				completedElectives++
			} else if firstIncomplete == uuid.Nil {
				firstIncomplete = sibling
			}
		}
		if completedElectives < electiveRequired {
			return &SequenceViolationError{LoID: lo.ID, BlockedByID: firstIncomplete}
		}
	}
	return nil
}

// dependenciesCompleted checks the learner's live enrolments against the
// LO's declared dependencies.
func (s *enrolmentService) dependenciesCompleted(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, loID uuid.UUID) (bool, uuid.UUID, error) {
	deps, err := s.reader.GetDependencies(ctx, tx, loID)
	if err != nil {
		return false, uuid.Nil, err
	}
	if len(deps) == 0 {
		return true, uuid.Nil, nil
	}
	rows, err := s.enrolRepo.FindLiveByUserAndLoIDs(ctx, tx, rd.UserID, rd.PortalID, deps)
	if err != nil {
		return false, uuid.Nil, err
	}
	completed := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if row.Status == types.StatusCompleted {
			completed[row.LoID] = true
		}
	}
	for _, dep := range deps {
		if !completed[dep] {
			return false, dep, nil
		}
	}
	return true, uuid.Nil, nil
}
