package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/learnbot/pkg/models"
)

type reminder struct {
	learnerID int64
	count     int
}

type fakeNotifier struct {
	sent []reminder
	fail map[int64]bool
}

func (f *fakeNotifier) SendReminder(_ context.Context, l models.Learner, count int) error {
	if f.fail[l.ID] {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, reminder{l.ID, count})
	return nil
}

type fakeLearners struct {
	byHour map[int][]models.Learner
}

func (f *fakeLearners) GetByID(_ context.Context, id int64) (*models.Learner, error) {
	for _, ls := range f.byHour {
		for _, l := range ls {
			if l.ID == id {
				return &l, nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeLearners) ListForNotification(_ context.Context, hour int) ([]models.Learner, error) {
	return f.byHour[hour], nil
}

type fakeDue map[int64]int

func (f fakeDue) DueItems(_ context.Context, learnerID int64, _ time.Time, limit int) ([]models.SRSItemState, error) {
	n := f[learnerID]
	if limit > 0 && n > limit {
		n = limit
	}
	return make([]models.SRSItemState, n), nil
}

func newTestScheduler(n *fakeNotifier, hour int) *Scheduler {
	learners := &fakeLearners{byHour: map[int][]models.Learner{
		9: {
			{ID: 1, QuestionsPerTest: 5},
			{ID: 2, QuestionsPerTest: 10},
			{ID: 3, QuestionsPerTest: 10},
			{ID: 4, QuestionsPerTest: 10},
		},
		22: {{ID: 5, QuestionsPerTest: 10}},
	}}
	due := fakeDue{1: 12, 2: 3, 4: 1, 5: 2}
	s := New(n, learners, due, Options{StartHour: 4, EndHour: 18}, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, hour, 30, 0, 0, time.UTC) }
	return s
}

func TestCheckAndSendReminders(t *testing.T) {
	n := &fakeNotifier{fail: map[int64]bool{4: true}}
	s := newTestScheduler(n, 9)

	require.NoError(t, s.CheckAndSendReminders(context.Background()))
	assert.Equal(t, []reminder{{1, 5}, {2, 3}}, n.sent)
}

func TestCheckAndSendRemindersOutsideWindow(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(n, 22)

	require.NoError(t, s.CheckAndSendReminders(context.Background()))
	assert.Empty(t, n.sent)
}

func TestRunManualCheck(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(n, 22)

	ok, err := s.RunManualCheck(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []reminder{{1, 12}}, n.sent)

	ok, err = s.RunManualCheck(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInWindow(t *testing.T) {
	s := New(&fakeNotifier{}, &fakeLearners{}, fakeDue{}, Options{StartHour: 4, EndHour: 18}, nil)
	assert.False(t, s.InWindow(3))
	assert.True(t, s.InWindow(4))
	assert.True(t, s.InWindow(18))
	assert.False(t, s.InWindow(19))
}
