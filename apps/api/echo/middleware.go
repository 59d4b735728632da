package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core/forms"
)

var contextSessionKey = "session"

// sessionMiddleware loads the session `:id` into the context.
// Only the user who opened a session (or an admin) may use it.
func sessionMiddleware(mgr *forms.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			sess, err := mgr.Get(ctx.Param("id"))
			if err != nil {
				return err
			}
			if sess.Identity.ID != claims.Subject && !claims.IsAdmin {
				return errHttpForbidden
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (*forms.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*forms.Session); ok {
		return sess, nil
	}
	return nil, forms.ErrSessionNotFound
}
