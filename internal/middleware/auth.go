package middleware

import (
  "fmt"
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/yungbote/enroltrack-backend/internal/logger"
  "github.com/yungbote/enroltrack-backend/internal/requestdata"
)

type AuthMiddleware struct {
  log       *logger.Logger
  jwtSecret []byte
}

func NewAuthMiddleware(log *logger.Logger, jwtSecret string) *AuthMiddleware {
  return &AuthMiddleware{
    log:       log.With("middleware", "AuthMiddleware"),
    jwtSecret: []byte(jwtSecret),
  }
}

// RequireAuth verifies the bearer token issued by the identity
// collaborator and loads the actor (user, profile, portal, capability
// flags) into requestdata for the enrolment core.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    rd, err := am.parseToken(tokenString)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
      return
    }
    ctx := requestdata.WithRequestData(c.Request.Context(), rd)
    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}

func (am *AuthMiddleware) parseToken(tokenString string) (*requestdata.RequestData, error) {
  token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
    }
    return am.jwtSecret, nil
  })
  if err != nil || !token.Valid {
    return nil, fmt.Errorf("invalid token")
  }
  claims, ok := token.Claims.(jwt.MapClaims)
  if !ok {
    return nil, fmt.Errorf("invalid token claims")
  }

  rd := &requestdata.RequestData{TokenString: tokenString}
  rd.UserID = claimUUID(claims, "sub")
  rd.ProfileID = claimUUID(claims, "profile_id")
  rd.PortalID = claimUUID(claims, "portal_id")
  if rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("token missing subject")
  }
  if roles, ok := claims["roles"].([]interface{}); ok {
    for _, r := range roles {
      switch r {
      case "manager":
        rd.IsManager = true
      case "assessor":
        rd.IsAssessor = true
      }
    }
  }
  return rd, nil
}

func claimUUID(claims jwt.MapClaims, key string) uuid.UUID {
  raw, ok := claims[key].(string)
  if !ok {
    return uuid.Nil
  }
  id, err := uuid.Parse(raw)
  if err != nil {
    return uuid.Nil
  }
  return id
}

func extractToken(c *gin.Context) string {
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  if qToken := c.Query("token"); qToken != "" {
    return qToken
  }
  return ""
}
