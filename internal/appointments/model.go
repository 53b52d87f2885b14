package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Field keys collected by the interview. The stored record has one column per key.
const (
	FieldName         = "name"
	FieldCity         = "city"
	FieldHospitalName = "hospitalName"
	FieldDepartment   = "department"
	FieldDate         = "date"
	FieldTime         = "time"
)

// Fields lists every key an appointment record carries.
var Fields = []string{FieldName, FieldCity, FieldHospitalName, FieldDepartment, FieldDate, FieldTime}

var (
	// ErrIncomplete is returned when a record lacks one of Fields.
	ErrIncomplete = errors.New("appointments: record is missing required fields")

	// ErrAppointmentNotFound is returned when an appointment id is unknown.
	ErrAppointmentNotFound = errors.New("appointments: not found")
)

// Appointment is a finalized booking request built from confirmed answers.
type Appointment struct {
	ID           uuid.UUID         `json:"id"`
	SessionID    string            `json:"session_id"`
	Transport    string            `json:"transport"`
	CallerPhone  string            `json:"caller_phone,omitempty"`
	Name         string            `json:"name"`
	City         string            `json:"city"`
	HospitalName string            `json:"hospital_name"`
	Department   string            `json:"department"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	Answers      map[string]string `json:"answers"`
	CreatedAt    time.Time         `json:"created_at"`
}

// New builds an appointment from confirmed answers, copying them verbatim.
func New(sessionID, transport, callerPhone string, answers map[string]string, now time.Time) Appointment {
	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	return Appointment{
		ID:           uuid.New(),
		SessionID:    sessionID,
		Transport:    transport,
		CallerPhone:  callerPhone,
		Name:         answers[FieldName],
		City:         answers[FieldCity],
		HospitalName: answers[FieldHospitalName],
		Department:   answers[FieldDepartment],
		Date:         answers[FieldDate],
		Time:         answers[FieldTime],
		Answers:      copied,
		CreatedAt:    now.UTC(),
	}
}

// Validate checks that every field was collected.
func (a Appointment) Validate() error {
	for _, key := range Fields {
		if _, ok := a.Answers[key]; !ok {
			return ErrIncomplete
		}
	}
	return nil
}
