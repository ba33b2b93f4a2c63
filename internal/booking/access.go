package booking

// Access checks are pure: they look only at the principal and the owner ids
// on the resource. Writes are restricted to the single authorized actor per
// operation; admins get read-only visibility everywhere.

// CanReadAppointment reports whether p may view the appointment.
func CanReadAppointment(p Principal, a *Appointment) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RolePatient:
		return p.ProfileID == a.PatientID
	case RoleDoctor:
		return p.ProfileID == a.DoctorID
	}
	return false
}

// CanTransitionStatus reports whether p may drive the appointment's status
// (confirm, reject, complete, start consultation). Only the owning doctor
// may.
func CanTransitionStatus(p Principal, a *Appointment) bool {
	return p.Role == RoleDoctor && p.ProfileID == a.DoctorID
}

// CanCancel reports whether p may cancel the appointment. Only the owning
// patient may.
func CanCancel(p Principal, a *Appointment) bool {
	return p.Role == RolePatient && p.ProfileID == a.PatientID
}

// CanDownloadReport reports whether p may fetch the attached medical report.
// Unlike plain reads this excludes admins, matching the report's clinical
// sensitivity.
func CanDownloadReport(p Principal, a *Appointment) bool {
	switch p.Role {
	case RolePatient:
		return p.ProfileID == a.PatientID
	case RoleDoctor:
		return p.ProfileID == a.DoctorID
	}
	return false
}
