package middleware

import (
	"net/http"

	"github.com/OFFIS-RIT/kgchat/internal/session"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SessionMiddleware attaches the caller's session to the AppContext,
// starting a new one and setting the cookie when the request carries none
// or an unknown id. It must run after AppContextMiddleware.
func SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc, ok := c.(*AppContext)
		if !ok {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}

		id := ""
		if cookie, err := c.Cookie(session.CookieName); err == nil {
			id = cookie.Value
		}

		st, created, err := cc.App.Sessions.GetOrCreate(id)
		if err != nil {
			logger.Error("Failed to create session", "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
		if created {
			logger.Debug("Started session", "session", st.ID)
			c.SetCookie(&http.Cookie{
				Name:     session.CookieName,
				Value:    st.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		cc.Session = st
		return next(cc)
	}
}
