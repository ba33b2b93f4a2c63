package booking

// transitionMap lists, per target status, the statuses an appointment may
// move from. pending and the terminal statuses are never targets of a
// doctor- or patient-driven transition.
var transitionMap = map[AppointmentStatus][]AppointmentStatus{
	StatusConfirmed:  {StatusPending},
	StatusCancelled:  {StatusPending, StatusConfirmed},
	StatusInProgress: {StatusConfirmed},
	StatusCompleted:  {StatusInProgress},
}

func ValidTransition(from, to AppointmentStatus) bool {
	allowed, ok := transitionMap[to]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}
