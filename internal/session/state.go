// Package session хранит состояние сеанса просмотра: корзину, личность пользователя и профиль.
package session

import (
	"sync"
	"time"

	"github.com/mmeshcher/cafebloom/internal/cart"
	"github.com/mmeshcher/cafebloom/internal/model"
)

// AdminState описывает, известно ли, является ли пользователь администратором.
type AdminState int

const (
	// AdminUnknown означает, что профиль ещё не загружен.
	AdminUnknown AdminState = iota
	// AdminDenied означает, что пользователь не вошёл или не является администратором.
	AdminDenied
	// AdminGranted означает, что профиль загружен и содержит признак администратора.
	AdminGranted
)

func (s AdminState) String() string {
	switch s {
	case AdminDenied:
		return "denied"
	case AdminGranted:
		return "granted"
	}
	return "unknown"
}

// MarshalText позволяет отдавать состояние в JSON строкой.
func (s AdminState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText разбирает строковое представление состояния.
func (s *AdminState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "denied":
		*s = AdminDenied
	case "granted":
		*s = AdminGranted
	default:
		*s = AdminUnknown
	}
	return nil
}

// State хранит сеанс просмотра одного браузера.
type State struct {
	ID   string
	Cart *cart.Cart

	mu              sync.Mutex
	identity        *model.Identity
	token           string
	profile         *model.Profile
	profileResolved bool
	generation      uint64
	lastSeen        time.Time
}

func newState(id string, now time.Time) *State {
	return &State{ID: id, Cart: cart.New(), lastSeen: now}
}

// View описывает сеанс для ответа клиенту.
type View struct {
	Identity *model.Identity `json:"user"`
	Profile  *model.Profile  `json:"profile"`
	IsAdmin  bool            `json:"is_admin"`
	Admin    AdminState      `json:"admin_state"`
}

// Identity возвращает личность пользователя, если он вошёл.
func (s *State) Identity() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// Profile возвращает копию профиля или nil, если он не загружен.
func (s *State) Profile() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyProfile()
}

// IsAdmin сообщает, загружен ли профиль с признаком администратора.
func (s *State) IsAdmin() bool {
	return s.AdminState() == AdminGranted
}

// AdminState возвращает тройственное состояние прав администратора.
func (s *State) AdminState() AdminState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.adminState()
}

// View возвращает согласованный снимок сеанса.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{Profile: s.copyProfile(), Admin: s.adminState()}
	if s.identity != nil {
		id := *s.identity
		v.Identity = &id
	}
	v.IsAdmin = v.Admin == AdminGranted
	return v
}

func (s *State) adminState() AdminState {
	switch {
	case s.identity == nil:
		return AdminDenied
	case s.profile != nil && s.profile.IsAdmin:
		return AdminGranted
	case s.profile != nil || s.profileResolved:
		return AdminDenied
	}
	return AdminUnknown
}

func (s *State) copyProfile() *model.Profile {
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// setIdentity меняет личность и сбрасывает профиль. Возвращает новое поколение.
func (s *State) setIdentity(identity *model.Identity, token string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
	s.token = token
	s.profile = nil
	s.profileResolved = false
	s.generation++
	return s.generation
}

func (s *State) credentials() (model.Identity, string, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return model.Identity{}, "", s.generation, false
	}
	return *s.identity, s.token, s.generation, true
}

// pendingProfile возвращает личность, для которой профиль ещё не загружен.
func (s *State) pendingProfile() (model.Identity, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil || s.profile != nil || s.profileResolved {
		return model.Identity{}, 0, false
	}
	return *s.identity, s.generation, true
}

// resolveProfile применяет результат загрузки, только если личность не сменилась.
func (s *State) resolveProfile(generation uint64, p *model.Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation || s.identity == nil {
		return false
	}
	if p != nil {
		cp := *p
		s.profile = &cp
	} else {
		s.profile = nil
	}
	s.profileResolved = true
	return true
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
