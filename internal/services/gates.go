package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/enroltrack-backend/internal/requestdata"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

// AccessGate is the authorization collaborator's boolean surface. The core
// consumes verdicts; it never derives them.
type AccessGate interface {
	CanUpdate(ctx context.Context, rd *requestdata.RequestData, e *types.Enrolment) bool
	CanArchive(ctx context.Context, rd *requestdata.RequestData, e *types.Enrolment) bool
}

// PaymentGate is consulted before creating enrolments on commercial
// content.
type PaymentGate interface {
	CanEnrol(ctx context.Context, userID, loID uuid.UUID) (bool, error)
}

// SelfOrManagerGate allows learners to touch their own enrolments and
// managers/assessors to touch anyone's.
type SelfOrManagerGate struct{}

func (SelfOrManagerGate) CanUpdate(ctx context.Context, rd *requestdata.RequestData, e *types.Enrolment) bool {
	if rd == nil || e == nil {
		return false
	}
	return rd.UserID == e.UserID || rd.Privileged()
}

func (SelfOrManagerGate) CanArchive(ctx context.Context, rd *requestdata.RequestData, e *types.Enrolment) bool {
	if rd == nil || e == nil {
		return false
	}
	return rd.UserID == e.UserID || rd.Privileged()
}

// OpenPaymentGate admits everyone; the real gate lives in the payment
// subsystem.
type OpenPaymentGate struct{}

func (OpenPaymentGate) CanEnrol(ctx context.Context, userID, loID uuid.UUID) (bool, error) {
	return true, nil
}
