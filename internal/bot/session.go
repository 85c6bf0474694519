package bot

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/learnbot/pkg/models"
)

const maxHintLevel = 5

// testRun tracks a generated test being answered question by question
type testRun struct {
	ResultID  int64
	Strategy  models.TestStrategy
	Questions []models.Question
	Index     int
	Correct   int
}

// session is the question a learner is currently answering
type session struct {
	LearnerID int64
	Question  models.Question
	EventID   string
	AskedAt   time.Time
	HintLevel int
	Answered  bool
	AutoScore float64
	TimeSpent float64
	Test      *testRun
}

func newSession(learnerID int64, q models.Question, now time.Time, test *testRun) *session {
	return &session{
		LearnerID: learnerID,
		Question:  q,
		EventID:   uuid.NewString(),
		AskedAt:   now,
		Test:      test,
	}
}

// answer scores a reply against the expected answer. Only the first answer counts.
func (s *session) answer(reply string, now time.Time) bool {
	if s.Answered {
		return false
	}
	s.Answered = true
	s.TimeSpent = now.Sub(s.AskedAt).Seconds()
	if isCorrect(s.Question, reply) {
		s.AutoScore = 1
	}
	return true
}

// hint reveals one more leading character of the answer
func (s *session) hint() string {
	if s.HintLevel < maxHintLevel {
		s.HintLevel++
	}
	return revealPrefix(s.Question.CorrectAnswer, s.HintLevel)
}

func isCorrect(q models.Question, reply string) bool {
	return normalizeAnswer(reply) != "" && normalizeAnswer(reply) == normalizeAnswer(q.CorrectAnswer)
}

func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func revealPrefix(answer string, n int) string {
	runes := []rune(answer)
	if n >= len(runes) {
		if len(runes) <= 1 {
			return strings.Repeat("•", len(runes))
		}
		n = len(runes) - 1
	}
	return string(runes[:n]) + strings.Repeat("•", len(runes)-n)
}

// sessionStore holds one session per chat
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]*session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, sessions: make(map[int64]*session)}
}

func (s *sessionStore) get(chatID int64, now time.Time) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && now.Sub(sess.AskedAt) > s.ttl {
		delete(s.sessions, chatID)
		return nil, false
	}
	return sess, true
}

func (s *sessionStore) put(chatID int64, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = sess
}

func (s *sessionStore) drop(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// update runs fn on the chat's session while holding the store lock
func (s *sessionStore) update(chatID int64, now time.Time, fn func(*session)) bool {
	sess, ok := s.get(chatID, now)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(sess)
	return true
}
