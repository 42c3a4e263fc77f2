package app

import (
	"github.com/yungbote/enroltrack-backend/internal/handlers"
	"github.com/yungbote/enroltrack-backend/internal/logger"
)

type Handlers struct {
	Enrolment *handlers.EnrolmentHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Enrolment: handlers.NewEnrolmentHandler(log, services.Enrolments),
	}
}
