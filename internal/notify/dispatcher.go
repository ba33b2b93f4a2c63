package notify

import (
	"context"
	"log"
	"time"
)

const sendTimeout = 10 * time.Second

// Dispatcher decouples notification delivery from the request path: methods
// enqueue and return immediately, a single worker goroutine drains the queue.
// A full queue drops the notification rather than blocking a booking.
type Dispatcher struct {
	next  Notifier
	queue chan func(ctx context.Context) error
}

func NewDispatcher(next Notifier) *Dispatcher {
	d := &Dispatcher{
		next:  next,
		queue: make(chan func(ctx context.Context) error, 100),
	}
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	for send := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := send(ctx); err != nil {
			log.Printf("notification delivery failed: %v", err)
		}
		cancel()
	}
}

func (d *Dispatcher) dispatch(send func(ctx context.Context) error) {
	select {
	case d.queue <- send:
	default:
		log.Println("notification queue full, dropping notification")
	}
}

func (d *Dispatcher) NotifyNewAppointment(_ context.Context, n NewAppointment) error {
	d.dispatch(func(ctx context.Context) error { return d.next.NotifyNewAppointment(ctx, n) })
	return nil
}

func (d *Dispatcher) NotifyConfirmation(_ context.Context, n Confirmation) error {
	d.dispatch(func(ctx context.Context) error { return d.next.NotifyConfirmation(ctx, n) })
	return nil
}

func (d *Dispatcher) NotifyRejection(_ context.Context, n Rejection) error {
	d.dispatch(func(ctx context.Context) error { return d.next.NotifyRejection(ctx, n) })
	return nil
}

func (d *Dispatcher) NotifyConsultationStarted(_ context.Context, n ConsultationStarted) error {
	d.dispatch(func(ctx context.Context) error { return d.next.NotifyConsultationStarted(ctx, n) })
	return nil
}

func (d *Dispatcher) NotifyUpcomingConsultation(_ context.Context, n UpcomingConsultation) error {
	d.dispatch(func(ctx context.Context) error { return d.next.NotifyUpcomingConsultation(ctx, n) })
	return nil
}
