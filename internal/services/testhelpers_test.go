package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/enroltrack-backend/internal/hierarchy"
	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/repos"
	"github.com/yungbote/enroltrack-backend/internal/requestdata"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// newTestDB opens a named in-memory sqlite database. cache=shared keeps
// the database alive across the pooled connections gorm hands out.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.LearningObject{},
		&types.LearningObjectEdge{},
		&types.LearningObjectDependency{},
		&types.CompletionRule{},
		&types.Enrolment{},
		&types.EnrolmentRevision{},
		&types.Plan{},
		&types.EnrolmentPlan{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// capturePublisher records events instead of sending them anywhere.
type capturePublisher struct {
	events []Event
}

func (p *capturePublisher) Publish(ctx context.Context, events ...Event) {
	p.events = append(p.events, events...)
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byType(eventType string) []Event {
	var out []Event
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (p *capturePublisher) reset() { p.events = nil }

type testEnv struct {
	db          *gorm.DB
	reader      hierarchy.Reader
	enrolRepo   repos.EnrolmentRepo
	revRepo     repos.EnrolmentRevisionRepo
	planRepo    repos.PlanRepo
	dueDates    DueDateService
	propagation PropagationService
	plans       PlanService
	pub         *capturePublisher
	svc         EnrolmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := testLogger()
	reader := hierarchy.NewReader(db, log)
	enrolRepo := repos.NewEnrolmentRepo(db, log)
	revRepo := repos.NewEnrolmentRevisionRepo(db, log)
	planRepo := repos.NewPlanRepo(db, log)
	dueDates := NewDueDateService(log, reader)
	propagation := NewPropagationService(log, reader, enrolRepo)
	plans := NewPlanService(log, planRepo)
	pub := &capturePublisher{}
	svc := NewEnrolmentService(db, log, reader, enrolRepo, revRepo, dueDates, propagation, plans, pub, SelfOrManagerGate{}, OpenPaymentGate{})
	return &testEnv{
		db:          db,
		reader:      reader,
		enrolRepo:   enrolRepo,
		revRepo:     revRepo,
		planRepo:    planRepo,
		dueDates:    dueDates,
		propagation: propagation,
		plans:       plans,
		pub:         pub,
		svc:         svc,
	}
}

func (env *testEnv) makeLO(t *testing.T, portalID uuid.UUID, typ types.LearningObjectType, mut func(*types.LearningObject)) *types.LearningObject {
	t.Helper()
	lo := &types.LearningObject{
		ID:        uuid.New(),
		PortalID:  portalID,
		Type:      typ,
		Title:     "lo-" + uuid.NewString()[:8],
		Published: true,
	}
	if mut != nil {
		mut(lo)
	}
	if err := env.db.Create(lo).Error; err != nil {
		t.Fatalf("seed learning object: %v", err)
	}
	return lo
}

func (env *testEnv) linkLO(t *testing.T, parentLoID, childLoID uuid.UUID, weight int, elective bool) {
	t.Helper()
	edge := &types.LearningObjectEdge{
		ID:         uuid.New(),
		ParentLoID: parentLoID,
		ChildLoID:  childLoID,
		Weight:     weight,
		Elective:   elective,
	}
	if err := env.db.Create(edge).Error; err != nil {
		t.Fatalf("seed edge: %v", err)
	}
}

func (env *testEnv) addDependency(t *testing.T, loID, dependsOnLoID uuid.UUID) {
	t.Helper()
	dep := &types.LearningObjectDependency{
		ID:            uuid.New(),
		LoID:          loID,
		DependsOnLoID: dependsOnLoID,
	}
	if err := env.db.Create(dep).Error; err != nil {
		t.Fatalf("seed dependency: %v", err)
	}
}

func (env *testEnv) addRule(t *testing.T, loID uuid.UUID, ruleType, value string) {
	t.Helper()
	rule := &types.CompletionRule{
		ID:    uuid.New(),
		LoID:  loID,
		Type:  ruleType,
		Value: value,
	}
	if err := env.db.Create(rule).Error; err != nil {
		t.Fatalf("seed completion rule: %v", err)
	}
}

func (env *testEnv) reload(t *testing.T, id uuid.UUID) *types.Enrolment {
	t.Helper()
	row, err := env.enrolRepo.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("reload enrolment %s: %v", id, err)
	}
	if row == nil {
		t.Fatalf("enrolment %s not found", id)
	}
	return row
}

func ctxFor(rd *requestdata.RequestData) context.Context {
	return requestdata.WithRequestData(context.Background(), rd)
}

func learnerData() *requestdata.RequestData {
	return &requestdata.RequestData{
		UserID:    uuid.New(),
		ProfileID: uuid.New(),
		PortalID:  uuid.New(),
	}
}

func mustCreate(t *testing.T, env *testEnv, ctx context.Context, in CreateInput) *types.Enrolment {
	t.Helper()
	node, err := env.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create enrolment for lo %s: %v", in.LoID, err)
	}
	return node
}

func mustComplete(t *testing.T, env *testEnv, ctx context.Context, enrolmentID uuid.UUID) *types.Enrolment {
	t.Helper()
	completed := types.StatusCompleted
	node, err := env.svc.Update(ctx, UpdateInput{EnrolmentID: enrolmentID, Status: &completed})
	if err != nil {
		t.Fatalf("complete enrolment %s: %v", enrolmentID, err)
	}
	return node
}
