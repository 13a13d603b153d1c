package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"gatepass/internal/auth"
	"gatepass/internal/errors"
	"gatepass/internal/handler"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	GatePass *handler.GatePassHandler
	Document *handler.DocumentHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, jwtService *auth.JWTService, h Handlers) {
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)

	// Secured routes (require JWT authentication)
	secured := api.Group("", JWTMiddleware(jwtService))

	secured.GET("/auth/validate", h.Auth.Validate)
	secured.GET("/me", h.User.Me)
	secured.POST("/me/password", h.Auth.ChangePassword)

	// Gate pass routes; static paths are registered before /:id
	passes := secured.Group("/gatepass")
	passes.POST("", h.GatePass.Create)
	passes.GET("/student", h.GatePass.ListForStudent)
	passes.GET("/student/:studentId", h.GatePass.ListForStudent)
	passes.GET("/pending", h.GatePass.ListPending)
	passes.GET("/approved", h.GatePass.ListApproved)
	passes.GET("/currently-out", h.GatePass.ListCurrentlyOut)
	passes.GET("/all", h.GatePass.Search)
	passes.GET("/dashboard", h.GatePass.Dashboard)
	passes.POST("/verify", h.Document.Verify)
	passes.GET("/:id", h.GatePass.Get)
	passes.POST("/:id/approve", h.GatePass.Approve)
	passes.POST("/:id/reject", h.GatePass.Reject)
	passes.POST("/:id/exit", h.GatePass.MarkExit)
	passes.POST("/:id/entry", h.GatePass.MarkEntry)
	passes.GET("/:id/document", h.Document.Download)
}

// JWTMiddleware validates the bearer token and stores its claims under handler.ClaimsContextKey.
func JWTMiddleware(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ClaimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "missing or invalid token",
				Code:  "AUTHENTICATION_FAILED",
			})
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
