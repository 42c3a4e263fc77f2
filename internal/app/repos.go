package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/repos"
)

type Repos struct {
	Enrolment         repos.EnrolmentRepo
	EnrolmentRevision repos.EnrolmentRevisionRepo
	Plan              repos.PlanRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Enrolment:         repos.NewEnrolmentRepo(db, log),
		EnrolmentRevision: repos.NewEnrolmentRevisionRepo(db, log),
		Plan:              repos.NewPlanRepo(db, log),
	}
}
