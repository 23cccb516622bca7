package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of an access token without verifying its
// signature. The backend verifies tokens; this is only used to decide when
// to refresh.
func TokenExpiry(access string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// NeedsRefresh reports whether access expires within leeway of now. Tokens
// without a readable exp claim are left alone.
func NeedsRefresh(access string, now time.Time, leeway time.Duration) bool {
	exp, ok := TokenExpiry(access)
	if !ok {
		return false
	}
	return !now.Add(leeway).Before(exp)
}
