package audit

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	events []*Event
	err    error
	closed bool
}

func (r *captureRecorder) Record(ctx context.Context, event *Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *captureRecorder) Close() error {
	r.closed = true
	return nil
}

func TestMultiRecorderFanOut(t *testing.T) {
	first := &captureRecorder{}
	second := &captureRecorder{}
	multi := NewMultiRecorder(first, second)

	event := &Event{Type: EventSignIn, Status: StatusSuccess}
	require.NoError(t, multi.Record(context.Background(), event))
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)

	require.NoError(t, multi.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestMultiRecorderContinuesPastFailure(t *testing.T) {
	failing := &captureRecorder{err: assert.AnError}
	healthy := &captureRecorder{}
	multi := NewMultiRecorder(failing, healthy)

	err := multi.Record(context.Background(), &Event{Type: EventSignOut, Status: StatusSuccess})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, healthy.events, 1, "one failing sink does not block the others")
}

func TestLogRecorderNilLogger(t *testing.T) {
	recorder := NewLogRecorder(nil)
	assert.NoError(t, recorder.Record(context.Background(), &Event{Type: EventSignIn}))
	assert.NoError(t, recorder.Close())
}

func TestDBRecorderInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO auth_audit").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	recorder := NewDBRecorder(db)
	event := &Event{
		Type:     EventRoleChanged,
		Status:   StatusSuccess,
		ActorID:  "admin-1",
		Metadata: map[string]interface{}{"new_role": "STAFF"},
	}
	require.NoError(t, recorder.Record(context.Background(), event))
	assert.Equal(t, int64(7), event.ID)
	assert.False(t, event.Timestamp.IsZero(), "timestamp is backfilled")
	assert.NoError(t, mock.ExpectationsWereMet())
}
