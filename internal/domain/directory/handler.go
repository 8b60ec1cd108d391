package directory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the doctor directory: patients read it to pick a
// doctor, admins manage it.
func (h *Handler) RegisterRoutes(patient, admin *echo.Group) {
	patient.GET("/doctors", h.List)

	admin.GET("/doctors", h.List)
	admin.POST("/create-doctor", h.CreateDoctor)
	admin.POST("/set-slots", h.SetSlots)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var in CreateDoctorInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

type setSlotsRequest struct {
	DoctorID string `json:"doctor_id"`
	Slots    int    `json:"slots_per_day"`
}

func (h *Handler) SetSlots(c echo.Context) error {
	var in setSlotsRequest
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	doctorID, err := uuid.Parse(in.DoctorID)
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid doctor_id")
	}
	d, err := h.svc.SetSlots(c.Request().Context(), doctorID, in.Slots)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}
