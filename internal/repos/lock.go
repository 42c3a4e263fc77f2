package repos

import (
  "errors"
  "hash/fnv"
  "strings"

  "github.com/google/uuid"
  "github.com/jackc/pgx/v5/pgconn"
  "gorm.io/gorm"
)

// AdvisoryXactLock serializes mutations for one (lo, user, portal) key.
// The lock is transaction scoped: Postgres releases it on commit or
// rollback, so every exit path cleans up. Non-Postgres dialects (the
// sqlite test databases) skip it and rely on the driver's serialization.
func AdvisoryXactLock(tx *gorm.DB, loID, userID, portalID uuid.UUID) error {
  if tx == nil {
    return nil
  }
  if tx.Dialector.Name() != "postgres" {
    return nil
  }
  key := advisoryKey64(loID, userID, portalID)
  return tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error
}

func advisoryKey64(loID, userID, portalID uuid.UUID) int64 {
  h := fnv.New64a()
  _, _ = h.Write([]byte("enrolment"))
  _, _ = h.Write([]byte{':'})
  _, _ = h.Write([]byte(loID.String()))
  _, _ = h.Write([]byte{':'})
  _, _ = h.Write([]byte(userID.String()))
  _, _ = h.Write([]byte{':'})
  _, _ = h.Write([]byte(portalID.String()))
  return int64(h.Sum64())
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
  if err == nil {
    return false
  }
  var pgErr *pgconn.PgError
  if errors.As(err, &pgErr) {
    if pgErr.Code == "23505" {
      if strings.TrimSpace(constraint) == "" {
        return true
      }
      return pgErr.ConstraintName == constraint
    }
    return false
  }
  return errors.Is(err, gorm.ErrDuplicatedKey)
}
