package appointments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository stores completed appointments.
type Repository interface {
	SaveAppointment(ctx context.Context, appt Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
}

// InMemoryRepository keeps appointments in process memory. Used when no
// DATABASE_URL is configured and in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Appointment
	order []uuid.UUID
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[uuid.UUID]Appointment)}
}

// SaveAppointment stores appt.
func (r *InMemoryRepository) SaveAppointment(_ context.Context, appt Appointment) error {
	if err := appt.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[appt.ID]; !exists {
		r.order = append(r.order, appt.ID)
	}
	r.items[appt.ID] = appt
	return nil
}

// GetAppointment returns a stored appointment.
func (r *InMemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

// List returns appointments in insertion order.
func (r *InMemoryRepository) List() []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Appointment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}
