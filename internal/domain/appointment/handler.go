package appointment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
	"github.com/mediflow/mediflow/pkg/pagination"
)

type directoryCounter interface {
	Count(ctx context.Context) (int, error)
}

type roleCounter interface {
	CountByRole(ctx context.Context, role string) (int, error)
}

type Handler struct {
	svc     *Service
	doctors directoryCounter
	users   roleCounter
}

func NewHandler(svc *Service, doctors directoryCounter, users roleCounter) *Handler {
	return &Handler{svc: svc, doctors: doctors, users: users}
}

// RegisterRoutes wires the booking flow for patients, the schedule view
// for doctors, and the decision endpoints for admins.
func (h *Handler) RegisterRoutes(patient, doctor, admin *echo.Group) {
	patient.GET("/dashboard", h.PatientDashboard)
	patient.POST("/book-appointment", h.Book)
	patient.GET("/appointments", h.PatientAppointments)
	patient.GET("/check-slots/:doctor_id/:date", h.CheckSlots)

	doctor.GET("/dashboard", h.DoctorDashboard)
	doctor.GET("/appointments", h.DoctorAppointments)

	admin.GET("/dashboard", h.AdminDashboard)
	admin.GET("/appointments", h.AllAppointments)
	admin.POST("/approve/:id", h.Approve)
	admin.POST("/reject/:id", h.Reject)
}

func principalID(c echo.Context) (uuid.UUID, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, apperr.E(apperr.KindUnauthenticated, "no authenticated session")
	}
	id, err := uuid.Parse(p.UserID)
	if err != nil {
		return uuid.Nil, apperr.E(apperr.KindUnauthenticated, "malformed session")
	}
	return id, nil
}

func (h *Handler) Book(c echo.Context) error {
	patientID, err := principalID(c)
	if err != nil {
		return err
	}
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), patientID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) PatientAppointments(c echo.Context) error {
	patientID, err := principalID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.PatientAppointments(c.Request().Context(), patientID,
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CheckSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid doctor_id")
	}
	availability, err := h.svc.Availability(c.Request().Context(), doctorID, c.Param("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availability)
}

func (h *Handler) PatientDashboard(c echo.Context) error {
	patientID, err := principalID(c)
	if err != nil {
		return err
	}
	dash, err := h.svc.DashboardForPatient(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}

// doctorProfile resolves the session's doctor record. A doctor-role
// session without a directory profile is a provisioning bug surfaced as
// NotFound.
func (h *Handler) doctorProfile(c echo.Context) (uuid.UUID, error) {
	userID, err := principalID(c)
	if err != nil {
		return uuid.Nil, err
	}
	d, err := h.svc.DoctorByUserID(c.Request().Context(), userID)
	if err != nil {
		return uuid.Nil, err
	}
	return d.ID, nil
}

func (h *Handler) DoctorAppointments(c echo.Context) error {
	doctorID, err := h.doctorProfile(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.DoctorAppointments(c.Request().Context(), doctorID,
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DoctorDashboard(c echo.Context) error {
	doctorID, err := h.doctorProfile(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.StatsForDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"stats": stats})
}

func (h *Handler) AllAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.AllAppointments(c.Request().Context(),
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type decisionResponse struct {
	Appointment *Appointment `json:"appointment"`
	Already     bool         `json:"already"`
}

func (h *Handler) decide(c echo.Context, status string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid appointment id")
	}
	a, already, err := h.svc.Decide(c.Request().Context(), id, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisionResponse{Appointment: a, Already: already})
}

func (h *Handler) Approve(c echo.Context) error {
	return h.decide(c, StatusApproved)
}

func (h *Handler) Reject(c echo.Context) error {
	return h.decide(c, StatusRejected)
}

type adminDashboard struct {
	Doctors      int   `json:"doctors"`
	Patients     int   `json:"patients"`
	Appointments Stats `json:"appointments"`
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	doctors, err := h.doctors.Count(ctx)
	if err != nil {
		return err
	}
	patients, err := h.users.CountByRole(ctx, auth.RolePatient)
	if err != nil {
		return err
	}
	stats, err := h.svc.StatsAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adminDashboard{
		Doctors:      doctors,
		Patients:     patients,
		Appointments: stats,
	})
}
