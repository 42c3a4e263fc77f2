package requestdata

import (
  "context"
  "github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey)
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// RequestData carries the acting user and the capability verdicts the
// authorization collaborator resolved for this request. The enrolment core
// consumes the booleans only; it never re-derives them.
type RequestData struct {
  TokenString string
  UserID      uuid.UUID
  ProfileID   uuid.UUID
  PortalID    uuid.UUID

  // Capability flags resolved upstream.
  IsManager  bool
  IsAssessor bool
}

// Privileged reports whether the actor may regress terminal enrolment
// statuses or archive other learners' enrolments.
func (rd *RequestData) Privileged() bool {
  if rd == nil {
    return false
  }
  return rd.IsManager || rd.IsAssessor
}
