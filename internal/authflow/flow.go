// Package authflow реализует явную машину состояний многошаговых сценариев
// установления сессии: подтверждение регистрации, сброс пароля и
// двухэтапный вход администратора (ключ доступа либо одноразовый код).
//
// Переходы описаны чистой функцией Next(state, event), не зависящей от
// транспорта и хранилища. Контекст сценария (Flow) держит одноразовый код
// и снимок учетной записи только в памяти процесса: код не персистится,
// живет до замены более новым и удаляется вместе со сценарием при успехе.
// Срок действия кода не ограничен — это сохраненное поведение исходной
// системы, а не упущение.
package authflow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/electrorescue/account-service/internal/models"
)

// Kind — тип сценария.
type Kind string

// Типы сценариев.
const (
	KindRegister   Kind = "register"
	KindReset      Kind = "reset"
	KindAdminLogin Kind = "admin-login"
)

// State — состояние сценария.
type State string

// Состояния сценариев.
const (
	// StateCredentialsEntered — пароль администратора подтвержден, выбор способа еще не предложен.
	StateCredentialsEntered State = "credentials-entered"
	// StateMethodSelection — администратору предложен выбор: ключ доступа или код.
	StateMethodSelection State = "method-selection"
	// StateKeyEntry — ожидается ключ быстрого входа администратора.
	StateKeyEntry State = "key-entry"
	// StateCodeEntry — ожидается одноразовый код (регистрация или вход администратора).
	StateCodeEntry State = "code-entry"
	// StateAwaitCode — ожидается код сброса пароля.
	StateAwaitCode State = "await-code"
	// StateAwaitNewPassword — код сброса подтвержден, ожидается новый пароль.
	StateAwaitNewPassword State = "await-new-password"
	// StateAuthenticated — сценарий завершен установлением сессии.
	StateAuthenticated State = "authenticated"
	// StateCompleted — сценарий завершен без сессии (сброс пароля).
	StateCompleted State = "completed"
)

// Event — событие, переводящее сценарий в новое состояние.
type Event string

// События сценариев.
const (
	// EventAdminVerified — учетная запись подтверждена как администратор.
	EventAdminVerified Event = "admin-verified"
	// EventChooseKey — администратор выбрал вход по ключу (без побочных эффектов).
	EventChooseKey Event = "choose-key"
	// EventCodeSent — код сгенерирован и письмо отправлено.
	EventCodeSent Event = "code-sent"
	// EventKeyMatched — ключ доступа совпал.
	EventKeyMatched Event = "key-matched"
	// EventCodeMatched — одноразовый код совпал.
	EventCodeMatched Event = "code-matched"
	// EventMismatch — ключ или код не совпали; состояние не меняется.
	EventMismatch Event = "mismatch"
	// EventPasswordSet — новый пароль сохранен, сценарий сброса завершен.
	EventPasswordSet Event = "password-set"
)

// ErrInvalidTransition возвращается при событии, недопустимом в текущем состоянии.
var ErrInvalidTransition = errors.New("authflow: invalid transition")

// ErrNotFound возвращается операциями над неизвестным или уже завершенным сценарием.
var ErrNotFound = errors.New("authflow: flow not found")

type transitionKey struct {
	state State
	event Event
}

var transitions = map[transitionKey]State{
	{StateCredentialsEntered, EventAdminVerified}: StateMethodSelection,

	{StateMethodSelection, EventChooseKey}: StateKeyEntry,
	{StateMethodSelection, EventCodeSent}:  StateCodeEntry,

	{StateKeyEntry, EventKeyMatched}: StateAuthenticated,
	{StateKeyEntry, EventMismatch}:   StateKeyEntry,

	{StateCodeEntry, EventCodeMatched}: StateAuthenticated,
	{StateCodeEntry, EventMismatch}:    StateCodeEntry,
	// Повторная отправка кода не меняет состояние, но заменяет код.
	{StateCodeEntry, EventCodeSent}: StateCodeEntry,

	{StateAwaitCode, EventCodeMatched}: StateAwaitNewPassword,
	{StateAwaitCode, EventMismatch}:    StateAwaitCode,
	{StateAwaitCode, EventCodeSent}:    StateAwaitCode,

	{StateAwaitNewPassword, EventPasswordSet}: StateCompleted,
}

// Next возвращает состояние, в которое событие event переводит состояние state.
// Функция чистая и не зависит от контекста сценария.
func Next(state State, event Event) (State, error) {
	next, ok := transitions[transitionKey{state, event}]
	if !ok {
		return state, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, state)
	}
	return next, nil
}

// Flow — контекст одного многошагового сценария.
//
// Код хранится только здесь: действует последний выданный, совпадение
// одноразово (сценарий удаляется из Store при успехе).
type Flow struct {
	ID        string
	Kind      Kind
	State     State
	Email     string
	Code      string
	Account   models.Account
	CreatedAt time.Time
}

// Store — потокобезопасное хранилище активных сценариев в памяти процесса.
// Сценарии не переживают перезапуск: это сохраненное свойство исходной
// системы, где код жил в памяти инициировавшей сессии.
//
// Наружу сценарий выходит только снимком-копией; живое состояние меняют
// исключительно операции Store под его мьютексом.
type Store struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

// NewStore создает пустое хранилище сценариев.
func NewStore() *Store {
	return &Store{flows: make(map[string]*Flow)}
}

// Create регистрирует новый сценарий в начальном состоянии initial
// и возвращает его снимок.
func (s *Store) Create(kind Kind, initial State, email string, account models.Account) Flow {
	f := &Flow{
		ID:        uuid.NewString(),
		Kind:      kind,
		State:     initial,
		Email:     email,
		Account:   account,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.flows[f.ID] = f
	s.mu.Unlock()
	return *f
}

// Get возвращает снимок сценария указанного типа по идентификатору.
// Снимок не отслеживает последующие изменения сценария.
func (s *Store) Get(id string, kind Kind) (Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok || f.Kind != kind {
		return Flow{}, false
	}
	return *f, true
}

// Apply применяет событие к текущему состоянию сценария. Переход проверяется
// по живому состоянию под мьютексом: параллельная попытка завершить тот же
// сценарий получит ErrInvalidTransition или ErrNotFound.
func (s *Store) Apply(id string, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return ErrNotFound
	}
	next, err := Next(f.State, event)
	if err != nil {
		return err
	}
	f.State = next
	return nil
}

// SetCode заменяет одноразовый код сценария; предыдущий код перестает
// действовать. Для завершенного сценария вызов ничего не делает.
func (s *Store) SetCode(id, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[id]; ok {
		f.Code = code
	}
}

// Delete завершает жизненный цикл сценария и стирает его код.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.flows, id)
	s.mu.Unlock()
}
