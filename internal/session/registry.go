package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/metrics"
)

// Registry хранит сеансы просмотра в памяти процесса и удаляет простаивающие.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*State
	idleTTL  time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewRegistry создаёт реестр сеансов; idleTTL <= 0 отключает удаление по простою.
func NewRegistry(idleTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*State),
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
		metrics:  m,
	}
}

// Get возвращает сеанс по идентификатору и отмечает обращение.
func (r *Registry) Get(id string) (*State, bool) {
	r.mu.Lock()
	st, ok := r.sessions[id]
	r.mu.Unlock()

	if ok {
		st.touch(r.now())
	}
	return st, ok
}

// Create создаёт новый сеанс со случайным идентификатором.
func (r *Registry) Create() *State {
	st := newState(uuid.NewString(), r.now())

	r.mu.Lock()
	r.sessions[st.ID] = st
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	return st
}

// Len возвращает число сеансов.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep удаляет сеансы, простаивающие дольше idleTTL, и возвращает их число.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	now := r.now()

	r.mu.Lock()
	removed := 0
	for id, st := range r.sessions {
		if st.idleSince(now) > r.idleTTL {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	return removed
}

// StartSweeper запускает фоновое удаление простаивающих сеансов до отмены ctx.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					r.logger.Debug("idle sessions removed", zap.Int("count", n))
				}
			}
		}
	}()
}
