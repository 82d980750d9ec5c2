package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"letterdesk/internal/auth"
	"letterdesk/internal/config"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/handler"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Letters  *handler.LetterHandler
	Verify   *handler.VerifyHandler
	Users    *handler.UserHandler
	Settings *handler.SettingsHandler
}

// Deps are the non-handler collaborators of the router.
type Deps struct {
	Logger     *slog.Logger
	TokenStore auth.TokenStoreInterface
	Gatherer   prometheus.Gatherer
	Ready      func() error
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, h Handlers, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/readyz", func(c echo.Context) error {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.String(http.StatusOK, "ready")
	})
	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Links printed in QR codes and emails are built from BASE_URL without the
	// /api prefix.
	e.GET("/verify/:number", h.Verify.Lookup)
	e.GET("/ceo_verify/:number", redirectToLetter)
	e.GET("/view_letter/:number", redirectToLetter)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.GET("/verify/:number", h.Verify.Lookup)
	api.GET("/verify/:number/qr.png", h.Verify.QRCode)
	api.GET("/company", h.Verify.Company)
	api.GET("/company/logo", h.Verify.Logo)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}), rejectRevoked(deps.TokenStore))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.Auth.Me)

	// Letter routes
	uploadLimit := middleware.BodyLimit(fmt.Sprintf("%dK", cfg.MaxUploadBytes/1024))
	secured.POST("/letters", h.Letters.Submit, uploadLimit)
	secured.GET("/letters", h.Letters.List)
	secured.GET("/letters/stats", h.Letters.Stats)
	secured.GET("/letters/:number", h.Letters.Get)
	secured.GET("/letters/:number/download", h.Letters.Download)
	secured.POST("/letters/:number/approve", h.Letters.Approve)
	secured.POST("/letters/:number/reject", h.Letters.Reject)
	secured.DELETE("/letters/:number", h.Letters.Delete)

	// Admin routes; the services enforce the role.
	secured.GET("/users", h.Users.ListUsers)
	secured.POST("/users", h.Users.CreateUser)
	secured.PUT("/users/:id", h.Users.UpdateUser)
	secured.DELETE("/users/:id", h.Users.DeleteUser)

	secured.GET("/settings", h.Settings.Get)
	secured.PUT("/settings", h.Settings.Update)
	secured.POST("/settings/logo", h.Settings.UploadLogo, uploadLimit)
	secured.POST("/settings/test-email", h.Settings.TestEmail)
	secured.DELETE("/settings/cache", h.Settings.ClearCache)
}

func redirectToLetter(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/api/letters/"+url.PathEscape(c.Param("number")))
}

// rejectRevoked refuses access tokens that were blacklisted at logout.
func rejectRevoked(store auth.TokenStoreInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil {
				return next(c)
			}
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return next(c)
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok || claims.ID == "" {
				return next(c)
			}
			revoked, err := store.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
			if err == nil && revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "token has been revoked",
					Code:  "TOKEN_REVOKED",
				})
			}
			return next(c)
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.WarnContext(c.Request().Context(), "request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
