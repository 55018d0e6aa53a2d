package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/analytics-validator/internal/application/port"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// SessionTracker держит счетчики текущей аналитической сессии in-process.
// Реализует интерфейс port.SessionSource.
//
// Клиентские приложения наполняют счетчики через ingest API; движок
// валидации читает их как snapshot.
type SessionTracker struct {
	mu            sync.RWMutex
	sessionID     string
	startedAt     time.Time
	userID        string
	userType      string
	journeyEvents int64
	logger        *logger.Logger
}

// NewSessionTracker создает tracker с анонимной сессией, чтобы snapshot
// всегда содержал session id.
func NewSessionTracker(log *logger.Logger) *SessionTracker {
	return &SessionTracker{
		sessionID: uuid.New().String(),
		startedAt: time.Now(),
		logger:    log,
	}
}

// StartSession начинает новую сессию для указанного пользователя и
// сбрасывает journey-счетчик. Возвращает id новой сессии.
func (t *SessionTracker) StartSession(userID, userType string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessionID = uuid.New().String()
	t.startedAt = time.Now()
	t.userID = userID
	t.userType = userType
	t.journeyEvents = 0

	t.logger.Debug("Session started",
		"session_id", t.sessionID,
		"user_type", userType,
	)

	return t.sessionID
}

// TrackAction регистрирует действие пользователя в текущей сессии
// (реализация port.SessionSource)
func (t *SessionTracker) TrackAction(_ context.Context, name, category string) error {
	t.mu.Lock()
	t.journeyEvents++
	count := t.journeyEvents
	t.mu.Unlock()

	t.logger.Debug("Action tracked",
		"action", name,
		"category", category,
		"journey_events", count,
	)

	return nil
}

// SessionInfo возвращает snapshot текущей сессии (реализация port.SessionSource)
func (t *SessionTracker) SessionInfo(_ context.Context) (port.SessionInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return port.SessionInfo{
		SessionID:       t.sessionID,
		DurationSeconds: time.Since(t.startedAt).Seconds(),
		JourneyEvents:   t.journeyEvents,
		UserID:          t.userID,
		UserType:        t.userType,
	}, nil
}
