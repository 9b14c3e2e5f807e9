package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStudent() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// rateLimitMiddleware throttles a route per client IP. Disabled in test mode
// so table-driven API tests do not trip it.
func rateLimitMiddleware(every time.Duration, burst int) echo.MiddlewareFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if appConf.TestMode {
				return next(ctx)
			}

			ip := ctx.RealIP()
			mu.Lock()
			lim, ok := limiters[ip]
			if !ok {
				lim = rate.NewLimiter(rate.Every(every), burst)
				limiters[ip] = lim
			}
			mu.Unlock()

			if !lim.Allow() {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
