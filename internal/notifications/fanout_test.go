package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/agency-backend/internal/notifications/domain"
)

type memStore struct {
	created []domain.Notification
	failFor map[string]error
}

func (m *memStore) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if err, ok := m.failFor[n.UserID]; ok {
		return nil, err
	}
	out := *n
	out.ID = fmt.Sprintf("n-%d", len(m.created)+1)
	m.created = append(m.created, out)
	return &out, nil
}

type memStaff struct {
	ids []string
}

func (m *memStaff) ListStaffIDs(ctx context.Context) ([]string, error) {
	return append([]string(nil), m.ids...), nil
}

func TestFanoutDeliver(t *testing.T) {
	event := Event{
		Type:  domain.TypeSystem,
		Title: "Modification requested",
		Body:  "The client requested changes.",
	}

	t.Run("writes one record per recipient", func(t *testing.T) {
		store := &memStore{}
		f := NewFanout(store)

		res, err := f.Deliver(context.Background(), event, AllStaff(&memStaff{ids: []string{"a", "b", "c"}}))
		require.NoError(t, err)

		assert.Equal(t, 3, res.CreatedCount)
		assert.Empty(t, res.Failures)
		require.Len(t, store.created, 3)
		assert.Equal(t, "a", store.created[0].UserID)
		assert.False(t, store.created[0].Read)
	})

	t.Run("one failed recipient does not block the rest", func(t *testing.T) {
		store := &memStore{failFor: map[string]error{"b": errors.New("insert failed")}}
		f := NewFanout(store)

		res, err := f.Deliver(context.Background(), event, AllStaff(&memStaff{ids: []string{"a", "b", "c"}}))
		require.NoError(t, err)

		assert.Equal(t, 2, res.CreatedCount)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, "b", res.Failures[0].RecipientID)
		assert.Contains(t, res.Failures[0].Error, "insert failed")

		// c was still attempted after b failed
		require.Len(t, store.created, 2)
		assert.Equal(t, "c", store.created[1].UserID)
	})

	t.Run("empty audience is a valid no-op", func(t *testing.T) {
		store := &memStore{}
		f := NewFanout(store)

		res, err := f.Deliver(context.Background(), event, AllStaff(&memStaff{}))
		require.NoError(t, err)
		assert.Equal(t, 0, res.CreatedCount)
		assert.Empty(t, store.created)
	})

	t.Run("audience is resolved at call time", func(t *testing.T) {
		store := &memStore{}
		f := NewFanout(store)
		staff := &memStaff{ids: []string{"a"}}
		audience := AllStaff(staff)

		res, err := f.Deliver(context.Background(), event, audience)
		require.NoError(t, err)
		assert.Equal(t, 1, res.CreatedCount)

		// staff membership changes between events; same selector sees it
		staff.ids = []string{"a", "b"}
		res, err = f.Deliver(context.Background(), event, audience)
		require.NoError(t, err)
		assert.Equal(t, 2, res.CreatedCount)
	})

	t.Run("single user audience", func(t *testing.T) {
		store := &memStore{}
		f := NewFanout(store)

		res, err := f.Deliver(context.Background(), Event{
			Type:      domain.TypeOnboardingUpdate,
			Title:     "New brief to review",
			ProjectID: "p-1",
		}, SingleUser("owner-1"))
		require.NoError(t, err)

		assert.Equal(t, 1, res.CreatedCount)
		require.Len(t, store.created, 1)
		assert.Equal(t, "owner-1", store.created[0].UserID)
		assert.Equal(t, "p-1", store.created[0].ProjectID)
	})
}
