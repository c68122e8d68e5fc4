package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/metrics"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

// AdminID задаёт идентификатор встроенного администратора.
const AdminID = "admin-id"

var (
	// ErrNoSession возвращается, если операция требует входа.
	ErrNoSession = errors.New("no active session")
	// ErrBuiltinAdmin возвращается при попытке сменить пароль встроенного администратора.
	ErrBuiltinAdmin = errors.New("built-in administrator credentials are managed by configuration")
)

// ProfileStore описывает доступ к профилям, нужный менеджеру.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error)
}

// Credentials задаёт встроенную учётную запись администратора. Пустой email отключает её.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) enabled() bool {
	return c.Email != "" && c.Password != ""
}

func (c Credentials) match(email, password string) bool {
	if !c.enabled() {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(c.Email)))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password))
	return emailOK&passOK == 1
}

// RegisterInfo содержит дополнительные поля регистрации.
type RegisterInfo struct {
	Name  string
	Phone string
}

// Manager связывает аутентификацию сервиса данных с сеансами просмотра.
type Manager struct {
	auth     backend.Auth
	profiles ProfileStore
	admin    Credentials
	loads    singleflight.Group
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewManager создаёт менеджер сеансов.
func NewManager(auth backend.Auth, profiles ProfileStore, admin Credentials, logger *zap.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		auth:     auth,
		profiles: profiles,
		admin:    admin,
		logger:   logger,
		metrics:  m,
	}
}

func (m *Manager) adminProfile(email string) *model.Profile {
	return &model.Profile{ID: AdminID, Name: "Admin", Email: email, IsAdmin: true}
}

func (m *Manager) isBuiltin(identity model.Identity) bool {
	return m.admin.enabled() && identity.ID == AdminID
}

// Login выполняет вход. Встроенная учётная запись администратора проверяется локально,
// без обращения к сервису данных.
func (m *Manager) Login(ctx context.Context, st *State, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validation.Required("email", email); err != nil {
		return err
	}
	if err := validation.Required("password", password); err != nil {
		return err
	}

	if m.admin.match(email, password) {
		identity := &model.Identity{ID: AdminID, Email: m.admin.Email}
		gen := st.setIdentity(identity, "")
		st.resolveProfile(gen, m.adminProfile(m.admin.Email))
		m.metrics.Login(true)
		m.logger.Info("built-in administrator signed in", zap.String("session", st.ID))
		return nil
	}

	sess, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		m.metrics.Login(false)
		if !errors.Is(err, backend.ErrInvalidCredentials) {
			m.logger.Error("sign in error", zap.String("email", email), zap.Error(err))
		}
		return err
	}

	identity := sess.Identity
	st.setIdentity(&identity, sess.AccessToken)
	m.metrics.Login(true)

	m.EnsureProfile(ctx, st)
	return nil
}

// Logout завершает сеанс пользователя. Личность и профиль очищаются только после
// успешного выхода в сервисе данных.
func (m *Manager) Logout(ctx context.Context, st *State) error {
	identity, token, _, ok := st.credentials()
	if !ok {
		return nil
	}

	if token != "" && !m.isBuiltin(identity) {
		if err := m.auth.SignOut(ctx, token); err != nil {
			m.logger.Error("sign out error", zap.String("user_id", identity.ID), zap.Error(err))
			return err
		}
	}

	st.setIdentity(nil, "")
	return nil
}

// Register регистрирует пользователя. Вход после регистрации не выполняется.
func (m *Manager) Register(ctx context.Context, email, password string, info RegisterInfo) error {
	email = strings.TrimSpace(email)
	if err := validation.Email(email); err != nil {
		return err
	}
	if err := validation.Password(password); err != nil {
		return err
	}
	if err := validation.Required("name", info.Name); err != nil {
		return err
	}

	err := m.auth.SignUp(ctx, backend.SignUpRequest{
		Email:    email,
		Password: password,
		Name:     strings.TrimSpace(info.Name),
		Phone:    strings.TrimSpace(info.Phone),
	})
	if err != nil {
		if !errors.Is(err, backend.ErrUserExists) {
			m.logger.Error("sign up error", zap.String("email", email), zap.Error(err))
		}
		return err
	}
	return nil
}

// UpdateProfile изменяет профиль в сервисе данных и затем в сеансе.
// Профиль встроенного администратора меняется только в сеансе.
func (m *Manager) UpdateProfile(ctx context.Context, st *State, patch model.ProfilePatch) (*model.Profile, error) {
	identity, _, gen, ok := st.credentials()
	current := st.Profile()
	if !ok || current == nil {
		return nil, ErrNoSession
	}
	if patch.Empty() {
		return current, nil
	}
	if patch.Email != nil {
		if err := validation.Email(*patch.Email); err != nil {
			return nil, err
		}
	}

	var updated *model.Profile
	if m.isBuiltin(identity) {
		p := patch.Apply(*current)
		updated = &p
	} else {
		var err error
		updated, err = m.profiles.UpdateProfile(ctx, identity.ID, patch)
		if err != nil {
			m.logger.Error("update profile error", zap.String("user_id", identity.ID), zap.Error(err))
			return nil, err
		}
	}

	if !st.resolveProfile(gen, updated) {
		return nil, ErrNoSession
	}
	return st.Profile(), nil
}

// ChangePassword меняет пароль после проверки текущего.
func (m *Manager) ChangePassword(ctx context.Context, st *State, current, next string) error {
	identity, _, _, ok := st.credentials()
	if !ok {
		return ErrNoSession
	}
	if m.isBuiltin(identity) {
		return ErrBuiltinAdmin
	}
	if err := validation.Password(next); err != nil {
		return err
	}

	sess, err := m.auth.SignIn(ctx, identity.Email, current)
	if err != nil {
		return err
	}

	if err := m.auth.UpdatePassword(ctx, sess.AccessToken, identity.ID, next); err != nil {
		m.logger.Error("update password error", zap.String("user_id", identity.ID), zap.Error(err))
		return err
	}
	return nil
}

// Restore восстанавливает личность из сохранённого клиентом значения. Для той же
// личности состояние не меняется; другая личность сбрасывает профиль.
func (m *Manager) Restore(st *State, identity model.Identity) {
	if current, ok := st.Identity(); ok && current.ID == identity.ID {
		return
	}

	id := identity
	gen := st.setIdentity(&id, "")
	if m.isBuiltin(identity) {
		st.resolveProfile(gen, m.adminProfile(identity.Email))
	}
}

// EnsureProfile загружает профиль для текущей личности, если он ещё не загружен.
// Результат для сменившейся за время загрузки личности отбрасывается. Временная
// ошибка оставляет права администратора неизвестными до следующей попытки.
func (m *Manager) EnsureProfile(ctx context.Context, st *State) {
	identity, gen, ok := st.pendingProfile()
	if !ok {
		return
	}

	if m.isBuiltin(identity) {
		st.resolveProfile(gen, m.adminProfile(identity.Email))
		return
	}

	key := st.ID + ":" + strconv.FormatUint(gen, 10)
	res, err, _ := m.loads.Do(key, func() (any, error) {
		return m.profiles.GetProfile(ctx, identity.ID)
	})

	switch {
	case err == nil:
		st.resolveProfile(gen, res.(*model.Profile))
	case errors.Is(err, backend.ErrNotFound):
		st.resolveProfile(gen, nil)
	default:
		m.logger.Warn("load profile error", zap.String("user_id", identity.ID), zap.Error(err))
	}
}

// Reason возвращает понятное пользователю описание ошибки.
func Reason(err error) string {
	var fe *validation.FieldError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fmt.Sprintf("%s %s", strings.ToUpper(fe.Field[:1])+fe.Field[1:], fe.Message)
	case errors.Is(err, backend.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, backend.ErrUserExists):
		return "An account with this email already exists"
	case errors.Is(err, backend.ErrUnavailable):
		return "Service is temporarily unavailable, please try again"
	case errors.Is(err, ErrNoSession):
		return "You are not signed in"
	case errors.Is(err, ErrBuiltinAdmin):
		return "The built-in administrator password cannot be changed here"
	}
	return "Something went wrong, please try again"
}
