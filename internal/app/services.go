package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/hierarchy"
	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/services"
)

type Services struct {
	Hierarchy   hierarchy.Reader
	DueDates    services.DueDateService
	Propagation services.PropagationService
	Plans       services.PlanService
	Enrolments  services.EnrolmentService
	Publisher   services.EventPublisher
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) Services {
	log.Info("Wiring services...")

	publisher, err := services.NewRedisEventPublisher(log)
	if err != nil {
		log.Warn("Redis event publisher unavailable, dropping domain events", "error", err)
		publisher = services.NopEventPublisher{}
	}

	reader := hierarchy.NewReader(db, log)
	dueDates := services.NewDueDateService(log, reader)
	propagation := services.NewPropagationService(log, reader, reposet.Enrolment)
	plans := services.NewPlanService(log, reposet.Plan)
	enrolments := services.NewEnrolmentService(
		db,
		log,
		reader,
		reposet.Enrolment,
		reposet.EnrolmentRevision,
		dueDates,
		propagation,
		plans,
		publisher,
		services.SelfOrManagerGate{},
		services.OpenPaymentGate{},
	)

	return Services{
		Hierarchy:   reader,
		DueDates:    dueDates,
		Propagation: propagation,
		Plans:       plans,
		Enrolments:  enrolments,
		Publisher:   publisher,
	}
}
