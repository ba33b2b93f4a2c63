package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medconnect/booking-server/internal/booking"
	"github.com/medconnect/booking-server/internal/chat"
	"github.com/medconnect/booking-server/internal/storage"
)

// BookingService is the slice of the reservation core the handlers need.
type BookingService interface {
	Create(ctx context.Context, in booking.CreateAppointmentInput) (*booking.AppointmentDetail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, actor booking.Principal, newStatus booking.AppointmentStatus, rejectionReason string) (*booking.Appointment, error)
	StartConsultation(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.Appointment, error)
	Get(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.AppointmentDetail, *chat.Chat, error)
	List(ctx context.Context, actor booking.Principal, q booking.AppointmentQuery) ([]booking.AppointmentDetail, int, error)
	GetReport(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.FileRef, error)
	ListDoctorSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]booking.TimeSlot, error)
}

func createAppointmentHandler(svc BookingService, files storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok || actor.Role != booking.RolePatient {
			writeError(w, http.StatusForbidden, "patients_only", "only patients can request appointments")
			return
		}

		req, report, err := decodeCreateRequest(w, r, files)
		if err != nil {
			handleError(w, r, err)
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(req.TimeSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_slot_id", "time_slot_id must be a valid UUID")
			return
		}
		if strings.TrimSpace(req.Reason) == "" {
			writeError(w, http.StatusBadRequest, "missing_reason", "reason is required")
			return
		}

		consultationType := booking.ConsultationType(req.ConsultationType)
		switch consultationType {
		case "", booking.ConsultationVideo, booking.ConsultationChat:
		default:
			writeError(w, http.StatusBadRequest, "invalid_consultation_type", "consultation_type must be video or chat")
			return
		}

		detail, err := svc.Create(r.Context(), booking.CreateAppointmentInput{
			PatientID:        actor.ProfileID,
			DoctorID:         doctorID,
			SlotID:           slotID,
			Reason:           req.Reason,
			ConsultationType: consultationType,
			MedicalReport:    report,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDetailResponse(detail))
	}
}

// decodeCreateRequest accepts either a JSON body or a multipart form with an
// optional medical_report PDF. The report is stored before the booking is
// attempted; a rejected upload rejects the whole request.
func decodeCreateRequest(w http.ResponseWriter, r *http.Request, files storage.Store) (CreateAppointmentRequest, *booking.FileRef, error) {
	var req CreateAppointmentRequest

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, errBadBody
		}
		return req, nil, nil
	}

	// Cap the whole request before parsing so an oversize upload is cut
	// off mid-stream instead of spooled to disk first. The slack above
	// the report ceiling covers the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxReportSize+1<<20)

	if err := r.ParseMultipartForm(storage.MaxReportSize + 1<<20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return req, nil, storage.ErrFileTooLarge
		}
		return req, nil, errBadBody
	}

	req.DoctorID = r.FormValue("doctor_id")
	req.TimeSlotID = r.FormValue("time_slot_id")
	req.Reason = r.FormValue("reason")
	req.ConsultationType = r.FormValue("consultation_type")

	file, header, err := r.FormFile("medical_report")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, errBadBody
	}
	defer file.Close()

	stored, err := files.Save(r.Context(), file, header.Size, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		return req, nil, err
	}

	return req, &booking.FileRef{
		FileName:   stored.OriginalName,
		FileKey:    stored.Key,
		UploadedAt: stored.UploadedAt,
	}, nil
}

func updateStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Status == "" {
			writeError(w, http.StatusBadRequest, "missing_status", "status is required")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, actor, booking.AppointmentStatus(req.Status), req.RejectionReason)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func startConsultationHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.StartConsultation(r.Context(), id, actor)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, actor)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		detail, thread, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := toDetailResponse(detail)
		resp.Chat = toChatResponse(thread)
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		q := booking.AppointmentQuery{
			Page:     parseIntParam(r, "page", 1),
			PageSize: parseIntParam(r, "page_size", 10),
		}

		if s := r.URL.Query().Get("status"); s != "" && s != "all" {
			status := booking.AppointmentStatus(s)
			if !booking.ValidStatus(status) {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status")
				return
			}
			q.Status = &status
		}

		if d := r.URL.Query().Get("date"); d != "" {
			date, err := time.Parse("2006-01-02", d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			q.Date = &date
		}

		items, total, err := svc.List(r.Context(), actor, q)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := ListAppointmentsResponse{
			Appointments: make([]AppointmentResponse, 0, len(items)),
			Total:        total,
			Page:         q.Page,
		}
		if q.PageSize > 0 {
			resp.Pages = (total + q.PageSize - 1) / q.PageSize
		}
		for i := range items {
			resp.Appointments = append(resp.Appointments, toDetailResponse(&items[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func downloadReportHandler(svc BookingService, files storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		ref, err := svc.GetReport(r.Context(), id, actor)
		if err != nil {
			handleError(w, r, err)
			return
		}

		body, err := files.Open(r.Context(), ref.FileKey)
		if err != nil {
			handleError(w, r, err)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+ref.FileName+`"`)
		if _, err := io.Copy(w, body); err != nil {
			log.Printf("failed to stream medical report for appointment %s: %v", id, err)
		}
	}
}

func listDoctorSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		from, to, err := parseDateRange(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_range", "from/to must be YYYY-MM-DD")
			return
		}

		slots, err := svc.ListDoctorSlots(r.Context(), doctorID, from, to)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

var errBadBody = errors.New("could not parse request body")

func parseIntParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// parseDateRange defaults to the next 30 days when from/to are absent.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := now, now.AddDate(0, 0, 30)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

// handleError maps core errors to client responses. Anything unknown is
// reported generically and logged with the request id, so internal faults
// never leak details to the caller.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadBody):
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse request body")
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound),
		errors.Is(err, booking.ErrDoctorNotApproved):
		writeError(w, http.StatusNotFound, "doctor_not_found", "doctor not found or not approved")
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrReportNotFound),
		errors.Is(err, storage.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "report_not_found", "medical report not found")
	case errors.Is(err, booking.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrSlotDoctorMismatch):
		writeError(w, http.StatusConflict, "slot_doctor_mismatch", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, storage.ErrFileTooLarge),
		errors.Is(err, storage.ErrUnsupportedFileType):
		writeError(w, http.StatusBadRequest, "upload_rejected", err.Error())
	default:
		log.Printf("internal error request_id=%s: %v", GetRequestID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
