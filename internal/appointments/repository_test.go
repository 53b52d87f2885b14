package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopiesAnswersVerbatim(t *testing.T) {
	answers := completeAnswers()
	appt := New("s1", "streaming", "", answers, time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("IST", 19800)))

	answers[FieldName] = "mutated"
	assert.Equal(t, "Ramesh", appt.Name)
	assert.Equal(t, "Ramesh", appt.Answers[FieldName])
	assert.Equal(t, "AIIMS Raipur", appt.HospitalName)
	assert.Equal(t, time.UTC, appt.CreatedAt.Location())
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.NoError(t, appt.Validate())
}

func TestInMemoryRepository(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	appt := New("s1", "turn_based", "+1555", completeAnswers(), time.Now())
	require.NoError(t, repo.SaveAppointment(ctx, appt))

	got, err := repo.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.Name, got.Name)
	assert.Len(t, repo.List(), 1)

	_, err = repo.GetAppointment(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrAppointmentNotFound))

	partial := New("s2", "turn_based", "", map[string]string{FieldName: "x"}, time.Now())
	assert.ErrorIs(t, repo.SaveAppointment(ctx, partial), ErrIncomplete)
	assert.Len(t, repo.List(), 1)
}
