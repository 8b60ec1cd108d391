package records

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

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes wires the record views for each role. Admins write
// records on a doctor's behalf, so their add endpoint takes an explicit
// doctor_id in the body.
func (h *Handler) RegisterRoutes(patient, doctor, admin *echo.Group) {
	patient.GET("/records", h.OwnRecords)

	doctor.GET("/records", h.GroupedRecords)
	doctor.GET("/patient-records/:patient_id", h.PatientHistory)
	doctor.POST("/add-record/:patient_id", h.AddRecord)

	admin.GET("/patient/:id/records", h.AdminPatientHistory)
	admin.POST("/patient/:id/add-record", h.AdminAddRecord)
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

func (h *Handler) OwnRecords(c echo.Context) error {
	patientID, err := principalID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ForPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GroupedRecords(c echo.Context) error {
	doctorID, err := h.doctorProfile(c)
	if err != nil {
		return err
	}
	groups, err := h.svc.GroupedForDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patients": groups})
}

func (h *Handler) patientHistory(c echo.Context, param string) error {
	patientID, err := uuid.Parse(c.Param(param))
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.HistoryOf(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) PatientHistory(c echo.Context) error {
	if _, err := h.doctorProfile(c); err != nil {
		return err
	}
	return h.patientHistory(c, "patient_id")
}

func (h *Handler) AdminPatientHistory(c echo.Context) error {
	return h.patientHistory(c, "id")
}

func (h *Handler) AddRecord(c echo.Context) error {
	doctorID, err := h.doctorProfile(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid patient id")
	}
	var in AddInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	m, err := h.svc.Add(c.Request().Context(), patientID, doctorID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

type adminAddInput struct {
	DoctorID string `json:"doctor_id"`
	AddInput
}

func (h *Handler) AdminAddRecord(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid patient id")
	}
	var in adminAddInput
	if err := c.Bind(&in); err != nil {
		return apperr.E(apperr.KindValidation, "invalid request body")
	}
	doctorID, err := uuid.Parse(in.DoctorID)
	if err != nil {
		return apperr.E(apperr.KindValidation, "invalid doctor_id")
	}
	m, err := h.svc.Add(c.Request().Context(), patientID, doctorID, in.AddInput)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}
