package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medconnect/booking-server/internal/booking"
	"github.com/medconnect/booking-server/internal/chat"
	"github.com/medconnect/booking-server/internal/storage"
)

const testSecret = "test-secret"

// fakeService lets each test script the core's behavior per method.
type fakeService struct {
	createFn      func(ctx context.Context, in booking.CreateAppointmentInput) (*booking.AppointmentDetail, error)
	updateFn      func(ctx context.Context, id uuid.UUID, actor booking.Principal, s booking.AppointmentStatus, reason string) (*booking.Appointment, error)
	startFn       func(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.Appointment, error)
	cancelFn      func(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.Appointment, error)
	getFn         func(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.AppointmentDetail, *chat.Chat, error)
	listFn        func(ctx context.Context, actor booking.Principal, q booking.AppointmentQuery) ([]booking.AppointmentDetail, int, error)
	reportFn      func(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.FileRef, error)
	doctorSlotsFn func(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]booking.TimeSlot, error)
}

func (f *fakeService) Create(ctx context.Context, in booking.CreateAppointmentInput) (*booking.AppointmentDetail, error) {
	return f.createFn(ctx, in)
}

func (f *fakeService) UpdateStatus(ctx context.Context, id uuid.UUID, actor booking.Principal, s booking.AppointmentStatus, reason string) (*booking.Appointment, error) {
	return f.updateFn(ctx, id, actor, s, reason)
}

func (f *fakeService) StartConsultation(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.Appointment, error) {
	return f.startFn(ctx, id, actor)
}

func (f *fakeService) Cancel(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.Appointment, error) {
	return f.cancelFn(ctx, id, actor)
}

func (f *fakeService) Get(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.AppointmentDetail, *chat.Chat, error) {
	return f.getFn(ctx, id, actor)
}

func (f *fakeService) List(ctx context.Context, actor booking.Principal, q booking.AppointmentQuery) ([]booking.AppointmentDetail, int, error) {
	return f.listFn(ctx, actor, q)
}

func (f *fakeService) GetReport(ctx context.Context, id uuid.UUID, actor booking.Principal) (*booking.FileRef, error) {
	return f.reportFn(ctx, id, actor)
}

func (f *fakeService) ListDoctorSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]booking.TimeSlot, error) {
	return f.doctorSlotsFn(ctx, doctorID, from, to)
}

type fakeFiles struct {
	saved   []storage.StoredFile
	content map[string][]byte
}

func (f *fakeFiles) Save(_ context.Context, r io.Reader, size int64, contentType, originalName string) (*storage.StoredFile, error) {
	if contentType != "application/pdf" {
		return nil, storage.ErrUnsupportedFileType
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sf := storage.StoredFile{
		Key:          "report-test-" + originalName,
		OriginalName: originalName,
		Size:         int64(len(body)),
		UploadedAt:   time.Now().UTC(),
	}
	f.saved = append(f.saved, sf)
	if f.content == nil {
		f.content = make(map[string][]byte)
	}
	f.content[sf.Key] = body
	return &sf, nil
}

func (f *fakeFiles) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.content[key]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func newTestRouter(svc BookingService, files storage.Store) http.Handler {
	if files == nil {
		files = &fakeFiles{}
	}
	return NewRouter(RouterConfig{
		Service:   svc,
		Files:     files,
		JWTSecret: testSecret,
		Env:       "test",
		Version:   "test",
	})
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func patientToken(t *testing.T, profileID uuid.UUID) string {
	return signToken(t, jwt.MapClaims{
		"sub":        uuid.NewString(),
		"role":       "patient",
		"profile_id": profileID.String(),
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
}

func doctorToken(t *testing.T, profileID uuid.UUID) string {
	return signToken(t, jwt.MapClaims{
		"sub":        uuid.NewString(),
		"role":       "doctor",
		"profile_id": profileID.String(),
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
}

func doRequest(handler http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v (body: %s)", err, rec.Body.String())
	}
	return e
}

func sampleDetail() *booking.AppointmentDetail {
	patientID := uuid.New()
	doctorID := uuid.New()
	return &booking.AppointmentDetail{
		Appointment: booking.Appointment{
			ID:               uuid.New(),
			PatientID:        patientID,
			DoctorID:         doctorID,
			TimeSlotID:       uuid.New(),
			Date:             time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
			StartTime:        "10:00",
			EndTime:          "10:30",
			Reason:           "persistent headaches",
			ConsultationType: booking.ConsultationVideo,
			Status:           booking.StatusPending,
			PaymentAmount:    750,
		},
		Patient: &booking.Patient{ID: patientID, Name: "Dana Reyes", Email: "dana@example.com"},
		Doctor:  &booking.Doctor{ID: doctorID, Name: "Imani Cole", Email: "imani@example.com"},
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := &fakeService{
		listFn: func(_ context.Context, _ booking.Principal, _ booking.AppointmentQuery) ([]booking.AppointmentDetail, int, error) {
			return nil, 0, nil
		},
	}
	router := newTestRouter(svc, nil)

	t.Run("missing header", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/appointments", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  uuid.NewString(),
			"role": "admin",
		}).SignedString([]byte("other-secret"))
		rec := doRequest(router, http.MethodGet, "/appointments", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub":  uuid.NewString(),
			"role": "admin",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		rec := doRequest(router, http.MethodGet, "/appointments", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("patient token without profile", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub":  uuid.NewString(),
			"role": "patient",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		rec := doRequest(router, http.MethodGet, "/appointments", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid admin token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub":  uuid.NewString(),
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		rec := doRequest(router, http.MethodGet, "/appointments", token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
		}
	})
}

func TestCreateAppointment(t *testing.T) {
	detail := sampleDetail()
	var gotInput booking.CreateAppointmentInput
	svc := &fakeService{
		createFn: func(_ context.Context, in booking.CreateAppointmentInput) (*booking.AppointmentDetail, error) {
			gotInput = in
			return detail, nil
		},
	}
	router := newTestRouter(svc, nil)
	token := patientToken(t, detail.PatientID)

	body, _ := json.Marshal(CreateAppointmentRequest{
		DoctorID:   detail.DoctorID.String(),
		TimeSlotID: detail.TimeSlotID.String(),
		Reason:     "persistent headaches",
	})
	rec := doRequest(router, http.MethodPost, "/appointments", token, bytes.NewReader(body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	if gotInput.PatientID != detail.PatientID {
		t.Errorf("patient id taken from request instead of token")
	}
	if gotInput.DoctorID != detail.DoctorID {
		t.Errorf("doctor id = %s, want %s", gotInput.DoctorID, detail.DoctorID)
	}

	var resp AppointmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}
	if resp.Patient == nil || resp.Patient.Name != "Dana Reyes" {
		t.Errorf("patient profile missing from response")
	}
}

func TestCreateAppointmentRequiresPatient(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, nil)
	token := doctorToken(t, uuid.New())

	body := strings.NewReader(`{"doctor_id":"x"}`)
	rec := doRequest(router, http.MethodPost, "/appointments", token, body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if e := decodeError(t, rec); e.Error != "patients_only" {
		t.Errorf("error code = %q, want patients_only", e.Error)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, nil)
	token := patientToken(t, uuid.New())

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"bad doctor id", `{"doctor_id":"nope","time_slot_id":"` + uuid.NewString() + `","reason":"x"}`, "invalid_doctor_id"},
		{"bad slot id", `{"doctor_id":"` + uuid.NewString() + `","time_slot_id":"nope","reason":"x"}`, "invalid_time_slot_id"},
		{"missing reason", `{"doctor_id":"` + uuid.NewString() + `","time_slot_id":"` + uuid.NewString() + `","reason":"  "}`, "missing_reason"},
		{"bad consultation type", `{"doctor_id":"` + uuid.NewString() + `","time_slot_id":"` + uuid.NewString() + `","reason":"x","consultation_type":"phone"}`, "invalid_consultation_type"},
		{"malformed json", `{`, "invalid_request_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, "/appointments", token, strings.NewReader(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if e := decodeError(t, rec); e.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", e.Error, tt.wantCode)
			}
		})
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	svc := &fakeService{
		createFn: func(_ context.Context, _ booking.CreateAppointmentInput) (*booking.AppointmentDetail, error) {
			return nil, booking.ErrSlotAlreadyBooked
		},
	}
	router := newTestRouter(svc, nil)
	token := patientToken(t, uuid.New())

	body := `{"doctor_id":"` + uuid.NewString() + `","time_slot_id":"` + uuid.NewString() + `","reason":"x"}`
	rec := doRequest(router, http.MethodPost, "/appointments", token, strings.NewReader(body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if e := decodeError(t, rec); e.Error != "slot_already_booked" {
		t.Errorf("error code = %q, want slot_already_booked", e.Error)
	}
}

func TestCreateAppointmentWithReportUpload(t *testing.T) {
	detail := sampleDetail()
	var gotInput booking.CreateAppointmentInput
	svc := &fakeService{
		createFn: func(_ context.Context, in booking.CreateAppointmentInput) (*booking.AppointmentDetail, error) {
			gotInput = in
			return detail, nil
		},
	}
	files := &fakeFiles{}
	router := newTestRouter(svc, files)
	token := patientToken(t, detail.PatientID)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("doctor_id", detail.DoctorID.String())
	_ = mw.WriteField("time_slot_id", detail.TimeSlotID.String())
	_ = mw.WriteField("reason", "persistent headaches")
	part, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="medical_report"; filename="bloodwork.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	_, _ = part.Write([]byte("%PDF-1.4 fake"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/appointments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	if len(files.saved) != 1 {
		t.Fatalf("saved files = %d, want 1", len(files.saved))
	}
	if gotInput.MedicalReport == nil || gotInput.MedicalReport.FileName != "bloodwork.pdf" {
		t.Errorf("medical report not passed to the core: %+v", gotInput.MedicalReport)
	}
}

func TestCreateAppointmentRejectsOversizeUpload(t *testing.T) {
	created := false
	svc := &fakeService{
		createFn: func(_ context.Context, _ booking.CreateAppointmentInput) (*booking.AppointmentDetail, error) {
			created = true
			return sampleDetail(), nil
		},
	}
	files := &fakeFiles{}
	router := newTestRouter(svc, files)
	token := patientToken(t, uuid.New())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="medical_report"; filename="huge.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	_, _ = part.Write(bytes.Repeat([]byte("a"), storage.MaxReportSize+2<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/appointments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
	}
	if got := decodeError(t, rec); got.Error != "upload_rejected" {
		t.Errorf("error code = %q, want upload_rejected", got.Error)
	}
	if created {
		t.Error("core Create called despite rejected upload")
	}
	if len(files.saved) != 0 {
		t.Errorf("saved files = %d, want 0", len(files.saved))
	}
}

func TestUpdateStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode string
	}{
		{"forbidden", booking.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"invalid transition", booking.ErrInvalidTransition, http.StatusConflict, "invalid_status_transition"},
		{"invalid status", booking.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
		{"not found", booking.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				updateFn: func(_ context.Context, _ uuid.UUID, _ booking.Principal, _ booking.AppointmentStatus, _ string) (*booking.Appointment, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(svc, nil)
			token := doctorToken(t, uuid.New())

			body := strings.NewReader(`{"status":"confirmed"}`)
			rec := doRequest(router, http.MethodPatch, "/appointments/"+uuid.NewString()+"/status", token, body)
			if rec.Code != tt.wantHTTP {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantHTTP)
			}
			if e := decodeError(t, rec); e.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", e.Error, tt.wantCode)
			}
		})
	}
}

func TestUpdateStatusPassesReason(t *testing.T) {
	var gotStatus booking.AppointmentStatus
	var gotReason string
	svc := &fakeService{
		updateFn: func(_ context.Context, _ uuid.UUID, _ booking.Principal, s booking.AppointmentStatus, reason string) (*booking.Appointment, error) {
			gotStatus, gotReason = s, reason
			return &sampleDetail().Appointment, nil
		},
	}
	router := newTestRouter(svc, nil)
	token := doctorToken(t, uuid.New())

	body := strings.NewReader(`{"status":"cancelled","rejection_reason":"On leave that week"}`)
	rec := doRequest(router, http.MethodPatch, "/appointments/"+uuid.NewString()+"/status", token, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotStatus != booking.StatusCancelled || gotReason != "On leave that week" {
		t.Errorf("got status=%q reason=%q", gotStatus, gotReason)
	}
}

func TestGetAppointmentIncludesChat(t *testing.T) {
	detail := sampleDetail()
	detail.ChatEnabled = true
	thread := &chat.Chat{
		ID:            uuid.New(),
		AppointmentID: detail.ID,
		Participants:  []uuid.UUID{uuid.New(), uuid.New()},
		Messages: []chat.Message{{
			ID:          uuid.New(),
			Content:     "Your appointment has been confirmed. You can now chat with your doctor.",
			MessageType: chat.MessageTypeSystem,
		}},
	}
	svc := &fakeService{
		getFn: func(_ context.Context, _ uuid.UUID, _ booking.Principal) (*booking.AppointmentDetail, *chat.Chat, error) {
			return detail, thread, nil
		},
	}
	router := newTestRouter(svc, nil)
	token := patientToken(t, detail.PatientID)

	rec := doRequest(router, http.MethodGet, "/appointments/"+detail.ID.String(), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp AppointmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Chat == nil {
		t.Fatal("chat missing from response")
	}
	if len(resp.Chat.Messages) != 1 {
		t.Errorf("chat messages = %d, want 1", len(resp.Chat.Messages))
	}
}

func TestListAppointments(t *testing.T) {
	detail := sampleDetail()
	var gotQuery booking.AppointmentQuery
	svc := &fakeService{
		listFn: func(_ context.Context, _ booking.Principal, q booking.AppointmentQuery) ([]booking.AppointmentDetail, int, error) {
			gotQuery = q
			return []booking.AppointmentDetail{*detail}, 23, nil
		},
	}
	router := newTestRouter(svc, nil)
	token := patientToken(t, detail.PatientID)

	rec := doRequest(router, http.MethodGet, "/appointments?status=pending&page=2&page_size=10", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotQuery.Status == nil || *gotQuery.Status != booking.StatusPending {
		t.Errorf("status filter = %v, want pending", gotQuery.Status)
	}
	if gotQuery.Page != 2 || gotQuery.PageSize != 10 {
		t.Errorf("paging = %d/%d, want 2/10", gotQuery.Page, gotQuery.PageSize)
	}

	var resp ListAppointmentsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 23 || resp.Pages != 3 || resp.Page != 2 {
		t.Errorf("total/pages/page = %d/%d/%d, want 23/3/2", resp.Total, resp.Pages, resp.Page)
	}

	// status=all is a passthrough, not a filter.
	rec = doRequest(router, http.MethodGet, "/appointments?status=all", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotQuery.Status != nil {
		t.Errorf("status=all produced a filter: %v", gotQuery.Status)
	}

	rec = doRequest(router, http.MethodGet, "/appointments?status=archived", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status: code = %d, want 400", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/appointments?date=03-09-2026", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: code = %d, want 400", rec.Code)
	}
}

func TestDownloadReport(t *testing.T) {
	detail := sampleDetail()
	files := &fakeFiles{content: map[string][]byte{
		"report-test-bloodwork.pdf": []byte("%PDF-1.4 fake"),
	}}
	svc := &fakeService{
		reportFn: func(_ context.Context, _ uuid.UUID, _ booking.Principal) (*booking.FileRef, error) {
			return &booking.FileRef{FileName: "bloodwork.pdf", FileKey: "report-test-bloodwork.pdf"}, nil
		},
	}
	router := newTestRouter(svc, files)
	token := patientToken(t, detail.PatientID)

	rec := doRequest(router, http.MethodGet, "/appointments/"+detail.ID.String()+"/medical-report", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "bloodwork.pdf") {
		t.Errorf("content disposition = %q", cd)
	}
	if rec.Body.String() != "%PDF-1.4 fake" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadReportMissing(t *testing.T) {
	svc := &fakeService{
		reportFn: func(_ context.Context, _ uuid.UUID, _ booking.Principal) (*booking.FileRef, error) {
			return nil, booking.ErrReportNotFound
		},
	}
	router := newTestRouter(svc, nil)
	token := patientToken(t, uuid.New())

	rec := doRequest(router, http.MethodGet, "/appointments/"+uuid.NewString()+"/medical-report", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec); e.Error != "report_not_found" {
		t.Errorf("error code = %q, want report_not_found", e.Error)
	}
}

func TestListDoctorSlots(t *testing.T) {
	doctorID := uuid.New()
	var gotFrom, gotTo time.Time
	svc := &fakeService{
		doctorSlotsFn: func(_ context.Context, id uuid.UUID, from, to time.Time) ([]booking.TimeSlot, error) {
			gotFrom, gotTo = from, to
			return []booking.TimeSlot{{
				ID:        uuid.New(),
				DoctorID:  id,
				Date:      time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
				StartTime: "10:00",
				EndTime:   "10:30",
			}}, nil
		},
	}
	router := newTestRouter(svc, nil)
	token := patientToken(t, uuid.New())

	rec := doRequest(router, http.MethodGet, "/doctors/"+doctorID.String()+"/slots?from=2026-09-01&to=2026-09-07", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if gotFrom.Format("2006-01-02") != "2026-09-01" || gotTo.Format("2006-01-02") != "2026-09-07" {
		t.Errorf("range = %s - %s", gotFrom, gotTo)
	}

	var resp []SlotResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Date != "2026-09-03" {
		t.Errorf("unexpected slots: %+v", resp)
	}

	rec = doRequest(router, http.MethodGet, "/doctors/not-a-uuid/slots", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad doctor id: code = %d, want 400", rec.Code)
	}
}

func TestLiveness(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rec := doRequest(router, http.MethodGet, "/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp LivenessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("unexpected liveness body: %+v", resp)
	}
}
