package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
	"github.com/mediflow/mediflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the auth endpoints plus the profile and admin
// views. session is the JWT middleware; logout sits under /auth but
// still requires a valid token.
func (h *Handler) RegisterRoutes(authGroup, patient, admin *echo.Group, session echo.MiddlewareFunc) {
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/forgot-password", h.ForgotPassword)
	authGroup.GET("/logout", h.Logout, session)

	patient.POST("/update-profile", h.UpdateProfile)

	admin.GET("/patients", h.ListPatients)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	u, token, err := h.svc.Authenticate(c.Request().Context(), in.Username, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

// Logout exists for route parity. Sessions are stateless tokens, so the
// client discards the token; the server has nothing to revoke.
func (h *Handler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out, discard your token",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var in forgotPasswordRequest
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	h.svc.ForgotPassword(c.Request().Context(), in.Email)
	return c.JSON(http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset link has been sent",
	})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.E(apperr.KindUnauthenticated, "no authenticated session")
	}
	userID, err := uuid.Parse(principal.UserID)
	if err != nil {
		return apperr.E(apperr.KindUnauthenticated, "malformed session")
	}

	var in UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
