package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_id, doctor_id, time_slot_id, slot_date, start_time, end_time,
	reason, consultation_type, status, payment_amount,
	report_file_name, report_file_key, report_uploaded_at,
	chat_enabled, meeting_link, consultation_started_at,
	cancellation_reason, reminder_sent_at, created_at, updated_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.Email,
		&d.Specialty,
		&d.Status,
		&d.ConsultationFee,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.IsBooked,
		&s.AppointmentID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func appointmentFields(a *Appointment) ([]any, *struct {
	fileName   *string
	fileKey    *string
	uploadedAt *time.Time
}) {
	report := &struct {
		fileName   *string
		fileKey    *string
		uploadedAt *time.Time
	}{}
	dest := []any{
		&a.ID, &a.PatientID, &a.DoctorID, &a.TimeSlotID, &a.Date, &a.StartTime, &a.EndTime,
		&a.Reason, &a.ConsultationType, &a.Status, &a.PaymentAmount,
		&report.fileName, &report.fileKey, &report.uploadedAt,
		&a.ChatEnabled, &a.MeetingLink, &a.ConsultationStartedAt,
		&a.CancellationReason, &a.ReminderSentAt, &a.CreatedAt, &a.UpdatedAt,
	}
	return dest, report
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	dest, report := appointmentFields(&a)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if report.fileName != nil && report.fileKey != nil {
		a.MedicalReport = &FileRef{FileName: *report.fileName, FileKey: *report.fileKey}
		if report.uploadedAt != nil {
			a.MedicalReport.UploadedAt = *report.uploadedAt
		}
	}
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, specialty, status, consultation_fee, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_booked, appointment_id, created_at, updated_at
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_booked, appointment_id, created_at, updated_at
		FROM time_slots
		WHERE doctor_id = $1
		  AND slot_date >= $2
		  AND slot_date <= $3
		ORDER BY slot_date ASC, start_time ASC
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ClaimSlotAndCreateAppointment performs the claim and the insert inside one
// transaction. The claim is a conditional update, so two racing callers can
// never both book: the second one updates zero rows and the transaction
// never writes an appointment. Rollback on any later failure doubles as the
// compensating release.
func (r *PgRepository) ClaimSlotAndCreateAppointment(ctx context.Context, appt *Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE time_slots
		SET is_booked = TRUE,
		    appointment_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = FALSE
	`, appt.TimeSlotID, appt.ID)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM time_slots WHERE id = $1)`, appt.TimeSlotID).Scan(&exists); err != nil {
			return fmt.Errorf("check slot existence: %w", err)
		}
		if !exists {
			return ErrSlotNotFound
		}
		return ErrSlotAlreadyBooked
	}

	var fileName, fileKey *string
	var uploadedAt *time.Time
	if appt.MedicalReport != nil {
		fileName = &appt.MedicalReport.FileName
		fileKey = &appt.MedicalReport.FileKey
		uploadedAt = &appt.MedicalReport.UploadedAt
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, time_slot_id, slot_date, start_time, end_time,
			reason, consultation_type, status, payment_amount,
			report_file_name, report_file_key, report_uploaded_at,
			chat_enabled, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, $11, $12, $13, FALSE, now(), now())
		RETURNING created_at, updated_at
	`,
		appt.ID, appt.PatientID, appt.DoctorID, appt.TimeSlotID, appt.Date, appt.StartTime, appt.EndTime,
		appt.Reason, appt.ConsultationType, appt.PaymentAmount,
		fileName, fileKey, uploadedAt,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit claim tx: %w", err)
	}

	return nil
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, slotID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET is_booked = FALSE,
		    appointment_id = NULL,
		    updated_at = now()
		WHERE id = $1
	`, slotID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load appointment patient: %w", err)
	}
	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load appointment doctor: %w", err)
	}

	return &AppointmentDetail{Appointment: *appt, Patient: patient, Doctor: doctor}, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, q AppointmentQuery) ([]AppointmentDetail, int, error) {
	conds := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch q.Role {
	case RolePatient:
		conds = append(conds, "a.patient_id = "+arg(q.ProfileID))
	case RoleDoctor:
		conds = append(conds, "a.doctor_id = "+arg(q.ProfileID))
	case RoleAdmin:
		// admins see everything
	default:
		return nil, 0, ErrForbidden
	}

	if q.Status != nil {
		conds = append(conds, "a.status = "+arg(*q.Status))
	}
	if q.Date != nil {
		conds = append(conds, "a.slot_date = "+arg(q.Date.Format("2006-01-02")))
	}

	where := strings.Join(conds, " AND ")

	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments a WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	offset := (q.Page - 1) * q.PageSize
	query := `
		SELECT
			a.id, a.patient_id, a.doctor_id, a.time_slot_id, a.slot_date, a.start_time, a.end_time,
			a.reason, a.consultation_type, a.status, a.payment_amount,
			a.report_file_name, a.report_file_key, a.report_uploaded_at,
			a.chat_enabled, a.meeting_link, a.consultation_started_at,
			a.cancellation_reason, a.reminder_sent_at, a.created_at, a.updated_at,
			p.id, p.user_id, p.name, p.email, p.created_at, p.updated_at,
			d.id, d.user_id, d.name, d.email, d.specialty, d.status, d.consultation_fee, d.created_at, d.updated_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE ` + where + `
		ORDER BY a.slot_date DESC, a.start_time DESC
		LIMIT ` + arg(q.PageSize) + ` OFFSET ` + arg(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		detail, err := scanDetailRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func scanDetailRow(row pgx.Row) (*AppointmentDetail, error) {
	var a Appointment
	var p Patient
	var d Doctor

	dest, report := appointmentFields(&a)
	dest = append(dest,
		&p.ID, &p.UserID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt,
		&d.ID, &d.UserID, &d.Name, &d.Email, &d.Specialty, &d.Status, &d.ConsultationFee, &d.CreatedAt, &d.UpdatedAt,
	)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if report.fileName != nil && report.fileKey != nil {
		a.MedicalReport = &FileRef{FileName: *report.fileName, FileKey: *report.fileKey}
		if report.uploadedAt != nil {
			a.MedicalReport.UploadedAt = *report.uploadedAt
		}
	}

	return &AppointmentDetail{Appointment: a, Patient: &p, Doctor: &d}, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'confirmed',
		    chat_enabled = TRUE,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+appointmentColumns+`
	`, id)
	return scanAppointment(row)
}

// CancelAppointmentAndReleaseSlot cancels and frees the slot atomically so
// the slot-invariant (booked iff referenced by a live appointment) holds at
// every commit point.
func (r *PgRepository) CancelAppointmentAndReleaseSlot(ctx context.Context, id uuid.UUID, from AppointmentStatus, reason string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, from, reason)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE time_slots
		SET is_booked = FALSE,
		    appointment_id = NULL,
		    updated_at = now()
		WHERE appointment_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) StartConsultation(ctx context.Context, id uuid.UUID, meetingLink string, startedAt time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'in_progress',
		    meeting_link = $2,
		    consultation_started_at = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'confirmed'
		RETURNING `+appointmentColumns+`
	`, id, meetingLink, startedAt)
	return scanAppointment(row)
}

func (r *PgRepository) FindUpcomingConfirmed(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			a.id, a.patient_id, a.doctor_id, a.time_slot_id, a.slot_date, a.start_time, a.end_time,
			a.reason, a.consultation_type, a.status, a.payment_amount,
			a.report_file_name, a.report_file_key, a.report_uploaded_at,
			a.chat_enabled, a.meeting_link, a.consultation_started_at,
			a.cancellation_reason, a.reminder_sent_at, a.created_at, a.updated_at,
			p.id, p.user_id, p.name, p.email, p.created_at, p.updated_at,
			d.id, d.user_id, d.name, d.email, d.specialty, d.status, d.consultation_fee, d.created_at, d.updated_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.status = 'confirmed'
		  AND a.reminder_sent_at IS NULL
		  AND (a.slot_date + a.start_time::time) >= $1
		  AND (a.slot_date + a.start_time::time) <= $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		detail, err := scanDetailRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent_at = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
