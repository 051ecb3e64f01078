package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/pkg/jwtutil"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

const claimsKey = "user"

// Messages returned in the detail field of 401 responses.
const (
	detailMissingToken = "Authentication credentials were not provided."
	detailBadHeader    = "Invalid authorization header. Expected a Bearer token."
	detailBadToken     = "Given token not valid for any token type"
)

// Auth validates bearer tokens and exposes their claims to handlers.
type Auth struct {
	jwt *jwtutil.JWTUtil
}

func NewAuth(jwt *jwtutil.JWTUtil) *Auth {
	return &Auth{jwt: jwt}
}

// authenticate returns the token claims, or the 401 detail when the header is
// unusable. Both are empty when no Authorization header is present.
func (a *Auth) authenticate(c echo.Context) (*jwtutil.UserClaims, string) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		prometheus.RecordAuthError("bad_header")
		return nil, detailBadHeader
	}

	claims, err := a.jwt.ValidateToken(parts[1])
	if err != nil {
		prometheus.RecordAuthError("invalid_token")
		logger.FromContext(c).Warn("Invalid or expired token", zap.Error(err))
		return nil, detailBadToken
	}
	return claims, ""
}

// RequireAuth rejects requests without a valid token with 401.
func (a *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, detail := a.authenticate(c)
		if detail == "" && claims == nil {
			prometheus.RecordAuthError("missing_token")
			detail = detailMissingToken
		}
		if detail != "" {
			logger.FromContext(c).Warn("Unauthenticated request", zap.String("reason", detail))
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": detail})
		}

		c.Set(claimsKey, claims)
		logger.FromContext(c).Debug("JWT token validated successfully",
			zap.Uint("user_id", claims.UserID),
			zap.String("email", claims.Email))
		return next(c)
	}
}

// OptionalAuth attaches claims when a token is sent. A malformed or invalid
// token is still rejected.
func (a *Auth) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, detail := a.authenticate(c)
		if detail != "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": detail})
		}
		if claims != nil {
			c.Set(claimsKey, claims)
		}
		return next(c)
	}
}

// RequireStaff must run after RequireAuth; it rejects non-staff users with 403.
func (a *Auth) RequireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := Claims(c)
		if !ok {
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": detailMissingToken})
		}
		if !claims.IsStaff {
			prometheus.RecordAuthError("not_staff")
			logger.FromContext(c).Warn("Staff permission denied", zap.Uint("user_id", claims.UserID))
			return c.JSON(http.StatusForbidden, echo.Map{"detail": "You do not have permission to perform this action."})
		}
		return next(c)
	}
}

// Claims returns the claims stored by RequireAuth or OptionalAuth.
func Claims(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	return claims, ok && claims != nil
}
