package echoapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ing-la/future-navigator/core"
	ratelimitsvc "github.com/Ing-la/future-navigator/services/ratelimit"
	tracingsvc "github.com/Ing-la/future-navigator/services/tracing"
)

// roleMiddleware only lets users having one of roles through.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// rateLimitMiddleware allows perMinute requests per route and client.
// Authenticated clients are keyed by user ID, others by IP.
func rateLimitMiddleware(limiter ratelimitsvc.Limiter, logger core.Logger, perMinute int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil || perMinute <= 0 {
			return next
		}
		return func(ctx echo.Context) error {
			client := "ip:" + ctx.RealIP()
			if claims, err := getContextClaims(ctx); err == nil {
				client = "user:" + claims.Subject
			}
			key := fmt.Sprintf("%s %s|%s", ctx.Request().Method, ctx.Path(), client)

			res, err := limiter.Allow(ctx.Request().Context(), key, perMinute, time.Minute)
			if err != nil {
				// fail open
				logger.Warn(fmt.Sprintf("rate limiter unavailable: %v", err), err)
				return next(ctx)
			}
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// tracingMiddleware starts a server span per request.
func tracingMiddleware() echo.MiddlewareFunc {
	propagator := propagation.TraceContext{}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			parent := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			route := ctx.Path()
			if route == "" {
				route = req.URL.Path
			}
			spanCtx, span := tracingsvc.Tracer().Start(parent, req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("client.address", ctx.RealIP()),
				),
			)
			defer span.End()
			ctx.SetRequest(req.WithContext(spanCtx))

			err := next(ctx)
			if err != nil {
				// let the error handler write the response so the status is known
				ctx.Error(err)
			}
			status := ctx.Response().Status
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			return nil
		}
	}
}
