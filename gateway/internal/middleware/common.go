package middleware

import (
	"log/slog"

	loggingmw "github.com/Skotchmaster/marketplace/pkg/middleware/logging"
	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
)

func Common(l *slog.Logger) []echo.MiddlewareFunc {
	if l == nil {
		l = slog.Default()
	}
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestID(),
		loggingmw.RequestLogger(l),
		ecM.Secure(),
	}
}
