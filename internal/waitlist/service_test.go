package waitlist_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/testing/memstore"
	"github.com/icarus-art/icarus/internal/waitlist"
)

func TestJoinNormalizesAndDefaultsSource(t *testing.T) {
	svc := waitlist.NewService(memstore.NewWaitlist())

	entry, outcome, err := svc.Join(context.Background(), waitlist.JoinInput{Email: "  Painter@Example.COM ", Name: " Ada ", Role: "artist"})
	require.NoError(t, err)
	assert.Equal(t, waitlist.Joined, outcome)
	assert.Equal(t, "painter@example.com", entry.Email)
	assert.Equal(t, "Ada", entry.Name)
	assert.Equal(t, waitlist.DefaultSource, entry.Source)
	assert.False(t, entry.Notified)

	entry, outcome, err = svc.Join(context.Background(), waitlist.JoinInput{Email: "painter@example.com", Source: "landing"})
	require.NoError(t, err)
	assert.Equal(t, waitlist.AlreadyListed, outcome)
	assert.Nil(t, entry)
	assert.Equal(t, "already_listed", outcome.String())
}

func TestJoinValidation(t *testing.T) {
	svc := waitlist.NewService(memstore.NewWaitlist())
	cases := []struct {
		name  string
		input waitlist.JoinInput
		field string
	}{
		{"missing email", waitlist.JoinInput{}, "email"},
		{"bad email", waitlist.JoinInput{Email: "nope"}, "email"},
		{"long name", waitlist.JoinInput{Email: "a@example.com", Name: strings.Repeat("n", 101)}, "name"},
		{"long role", waitlist.JoinInput{Email: "a@example.com", Role: strings.Repeat("r", 51)}, "role"},
		{"long source", waitlist.JoinInput{Email: "a@example.com", Source: strings.Repeat("s", 51)}, "source"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Join(context.Background(), tc.input)
			require.ErrorIs(t, err, shared.ErrValidation)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestConcurrentJoinsKeepOneEntry(t *testing.T) {
	store := memstore.NewWaitlist()
	svc := waitlist.NewService(store)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := svc.Join(context.Background(), waitlist.JoinInput{Email: "same@example.com"})
			if err != nil {
				t.Error(err)
				return
			}
			if outcome == waitlist.Joined {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, joined)

	entries, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMarkNotifiedCountsChanges(t *testing.T) {
	svc := waitlist.NewService(memstore.NewWaitlist())
	a, _, err := svc.Join(context.Background(), waitlist.JoinInput{Email: "a@example.com"})
	require.NoError(t, err)
	b, _, err := svc.Join(context.Background(), waitlist.JoinInput{Email: "b@example.com"})
	require.NoError(t, err)

	changed, err := svc.MarkNotified(context.Background(), []int64{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = svc.MarkNotified(context.Background(), []int64{a.ID})
	require.NoError(t, err)
	assert.Zero(t, changed)
}
