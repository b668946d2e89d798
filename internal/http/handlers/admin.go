package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/hospital"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// AdminHandler serves the front-desk endpoints for appointments, beds and
// doctors.
type AdminHandler struct {
	appointments appointments.Store
	beds         hospital.Store
	directory    doctors.Directory
	logger       *logging.Logger
	now          func() time.Time
	location     *time.Location
}

func NewAdminHandler(appts appointments.Store, beds hospital.Store, directory doctors.Directory, loc *time.Location, logger *logging.Logger) *AdminHandler {
	if appts == nil || beds == nil || directory == nil {
		panic("handlers: admin stores cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{
		appointments: appts,
		beds:         beds,
		directory:    directory,
		logger:       logger,
		now:          time.Now,
		location:     loc,
	}
}

// Routes mounts the admin endpoints on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/appointments", h.ListAppointments)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Patch("/appointments/{id}/status", h.UpdateAppointmentStatus)
	r.Get("/beds", h.ListBeds)
	r.Get("/beds/stats", h.BedStats)
	r.Get("/beds/{id}", h.GetBed)
	r.Patch("/beds/{id}", h.UpdateBed)
	r.Get("/doctors", h.ListDoctors)
	r.Get("/doctors/{id}", h.GetDoctor)
}

// ListAppointments handles GET /admin/appointments?doctorId=&date=. date
// defaults to today in the hospital timezone.
func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctorID, err := strconv.ParseInt(q.Get("doctorId"), 10, 64)
	if err != nil || doctorID <= 0 {
		writeError(w, http.StatusBadRequest, "doctorId is required")
		return
	}
	date := h.now().In(h.location)
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err = time.ParseInLocation(appointments.DateLayout, raw, h.location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}
	list, err := h.appointments.ListByDoctor(r.Context(), doctorID, date)
	if err != nil {
		h.logger.Error("list appointments failed", "doctor_id", doctorID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	appt, err := h.appointments.Get(r.Context(), id)
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case err != nil:
		h.logger.Error("get appointment failed", "appointment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
	default:
		writeJSON(w, http.StatusOK, appt)
	}
}

type statusRequest struct {
	Status appointments.Status `json:"status"`
}

// UpdateAppointmentStatus handles PATCH /admin/appointments/{id}/status.
func (h *AdminHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil || !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be Scheduled, Completed, Cancelled or No-Show")
		return
	}
	err := h.appointments.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, appointments.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, appointments.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot already booked")
	case err != nil:
		h.logger.Error("update appointment status failed", "appointment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update appointment")
	default:
		h.logger.Info("appointment status updated", "appointment_id", id, "status", req.Status)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id, "status": req.Status})
	}
}

// ListBeds handles GET /admin/beds?available=&ward=.
func (h *AdminHandler) ListBeds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter hospital.Filter
	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		filter.Available = &available
	}
	if raw := q.Get("ward"); raw != "" {
		filter.Ward = hospital.Ward(raw)
		if !filter.Ward.Valid() {
			writeError(w, http.StatusBadRequest, "unknown ward")
			return
		}
	}
	beds, err := h.beds.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list beds failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list beds")
		return
	}
	if beds == nil {
		beds = []hospital.Bed{}
	}
	writeJSON(w, http.StatusOK, beds)
}

type bedStatsResponse struct {
	Available hospital.Stats     `json:"available"`
	Occupancy hospital.Occupancy `json:"occupancy"`
}

// BedStats handles GET /admin/beds/stats.
func (h *AdminHandler) BedStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.beds.Stats(r.Context())
	if err != nil {
		h.logger.Error("bed stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load bed stats")
		return
	}
	occupancy, err := hospital.OccupancyOf(r.Context(), h.beds)
	if err != nil {
		h.logger.Error("bed occupancy failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load bed stats")
		return
	}
	writeJSON(w, http.StatusOK, bedStatsResponse{Available: stats, Occupancy: occupancy})
}

func (h *AdminHandler) GetBed(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bed id")
		return
	}
	bed, err := h.beds.Get(r.Context(), id)
	switch {
	case errors.Is(err, hospital.ErrNotFound):
		writeError(w, http.StatusNotFound, "bed not found")
	case err != nil:
		h.logger.Error("get bed failed", "bed_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load bed")
	default:
		writeJSON(w, http.StatusOK, bed)
	}
}

type bedUpdateRequest struct {
	Available   *bool  `json:"available"`
	PatientName string `json:"patientName"`
	PatientID   string `json:"patientId"`
}

// UpdateBed handles PATCH /admin/beds/{id}: admitting a patient marks the
// bed occupied, discharging frees it and clears the patient.
func (h *AdminHandler) UpdateBed(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bed id")
		return
	}
	var req bedUpdateRequest
	if err := decodeJSON(r, &req); err != nil || req.Available == nil {
		writeError(w, http.StatusBadRequest, "available is required")
		return
	}
	ctx := r.Context()
	bed, err := h.beds.Get(ctx, id)
	if errors.Is(err, hospital.ErrNotFound) {
		writeError(w, http.StatusNotFound, "bed not found")
		return
	}
	if err != nil {
		h.logger.Error("get bed failed", "bed_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update bed")
		return
	}

	if *req.Available {
		bed.Available = true
		bed.PatientName = ""
		bed.PatientID = ""
		bed.AdmissionDate = nil
	} else {
		if strings.TrimSpace(req.PatientName) == "" {
			writeError(w, http.StatusBadRequest, "patientName is required to admit")
			return
		}
		admitted := h.now().UTC()
		bed.Available = false
		bed.PatientName = strings.TrimSpace(req.PatientName)
		bed.PatientID = strings.TrimSpace(req.PatientID)
		bed.AdmissionDate = &admitted
	}

	if err := h.beds.Update(ctx, *bed); err != nil {
		if errors.Is(err, hospital.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bed not found")
			return
		}
		h.logger.Error("update bed failed", "bed_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update bed")
		return
	}
	h.logger.Info("bed updated", "bed_id", id, "available", bed.Available)
	writeJSON(w, http.StatusOK, bed)
}

// ListDoctors handles GET /admin/doctors?specialization=.
func (h *AdminHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	var (
		list []doctors.Doctor
		err  error
	)
	if spec := strings.TrimSpace(r.URL.Query().Get("specialization")); spec != "" {
		list, err = h.directory.FindBySpecialization(r.Context(), doctors.Specialization(spec))
	} else {
		list, err = h.directory.ListAvailable(r.Context())
	}
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	if list == nil {
		list = []doctors.Doctor{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	doc, err := h.directory.FindByID(r.Context(), id)
	switch {
	case errors.Is(err, doctors.ErrNotFound):
		writeError(w, http.StatusNotFound, "doctor not found")
	case err != nil:
		h.logger.Error("get doctor failed", "doctor_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}
