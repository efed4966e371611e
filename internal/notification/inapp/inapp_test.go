package inapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureStore struct {
	created           []CreateParams
	createErr         error
	gotLimit, gotSkip int
}

func (s *captureStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	if s.createErr != nil {
		return Notification{}, s.createErr
	}
	s.created = append(s.created, p)
	return Notification{ID: uuid.New(), UserID: p.UserID}, nil
}

func (s *captureStore) List(_ context.Context, _ uuid.UUID, limit, offset int) ([]Notification, int, error) {
	s.gotLimit, s.gotSkip = limit, offset
	return nil, 0, nil
}

func (s *captureStore) CountUnread(context.Context, uuid.UUID) (int, error)  { return 0, nil }
func (s *captureStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *captureStore) MarkAllRead(context.Context, uuid.UUID) error         { return nil }

func TestSendEncodesPayload(t *testing.T) {
	store := &captureStore{}
	svc := NewService(store, nil)
	leadID := uuid.New()

	err := svc.Send(context.Background(), SendParams{
		UserID:       uuid.New(),
		Type:         "referral_requested",
		Title:        "New lead referral",
		Content:      "Lead Jane has been referred to you.",
		ResourceID:   &leadID,
		ResourceType: "lead",
		Payload:      map[string]string{"leadId": leadID.String()},
	})
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	got := store.created[0]
	require.NotNil(t, got.ResourceType)
	assert.Equal(t, "lead", *got.ResourceType)
	assert.JSONEq(t, `{"leadId":"`+leadID.String()+`"}`, string(got.Payload))
}

func TestSendRequiresTitleAndContent(t *testing.T) {
	store := &captureStore{}
	err := NewService(store, nil).Send(context.Background(), SendParams{UserID: uuid.New(), Title: "  ", Content: "x"})

	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, store.created)
}

func TestSendSurfacesStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	err := NewService(&captureStore{createErr: boom}, nil).Send(context.Background(), SendParams{
		UserID: uuid.New(), Title: "t", Content: "c",
	})
	assert.ErrorIs(t, err, boom)
}

func TestListPaging(t *testing.T) {
	store := &captureStore{}
	svc := NewService(store, nil)

	_, _, err := svc.List(context.Background(), uuid.New(), 3, 500)
	require.NoError(t, err)
	assert.Equal(t, maxListPageSize, store.gotLimit)
	assert.Equal(t, 2*maxListPageSize, store.gotSkip)

	_, _, _ = svc.List(context.Background(), uuid.New(), 0, 0)
	assert.Equal(t, 20, store.gotLimit)
	assert.Equal(t, 0, store.gotSkip)
}

func TestUnreadQueryFiltersOnReadFlag(t *testing.T) {
	q := strings.Join(strings.Fields(countUnreadSQL), " ")
	assert.Equal(t, "SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1 AND NOT is_read", q)
}

func TestStorageErrorIsInternal(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := storageError(opList, "list notifications", cause)

	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), opList)
}
