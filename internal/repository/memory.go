package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maynagashev/flowkeeper/models"
)

// firstCustomRitualID - первый ID для собственных ритуалов, как в миграции 0002.
const firstCustomRitualID = 101

// MemoryStore - хранилище в памяти для разработки и демо.
// Реализует все интерфейсы репозиториев. Данные теряются при перезапуске.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID   int64
	users    map[int64]models.User
	sessions map[int64]models.FocusSession
	journal  map[int64]models.JournalEntry
	notes    map[int64]models.VoiceNote
	clones   map[int64]models.VoiceClone

	habits       map[int64]models.Habit
	habitEntries map[int64]models.HabitEntry
	struggles    map[int64]models.HabitStruggle

	nextRitualID int64
	rituals      map[int64]models.ResetRitual
	completions  map[int64]models.ResetCompletion

	prefs map[int64]models.UserPreferences
}

// NewMemoryStore создает пустое хранилище со встроенными ритуалами.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		now:          time.Now,
		users:        make(map[int64]models.User),
		sessions:     make(map[int64]models.FocusSession),
		journal:      make(map[int64]models.JournalEntry),
		notes:        make(map[int64]models.VoiceNote),
		clones:       make(map[int64]models.VoiceClone),
		habits:       make(map[int64]models.Habit),
		habitEntries: make(map[int64]models.HabitEntry),
		struggles:    make(map[int64]models.HabitStruggle),
		nextRitualID: firstCustomRitualID - 1,
		rituals:      make(map[int64]models.ResetRitual),
		completions:  make(map[int64]models.ResetCompletion),
		prefs:        make(map[int64]models.UserPreferences),
	}
	for _, r := range BuiltinRituals() {
		r.CreatedAt = s.now()
		s.rituals[r.ID] = r
	}
	return s
}

// NewMemoryRepositories возвращает набор репозиториев поверх одного MemoryStore.
func NewMemoryRepositories(store *MemoryStore) *Repositories {
	return &Repositories{
		Users:       store,
		Sessions:    store,
		Journal:     store,
		VoiceNotes:  store,
		VoiceClones: store,
		Habits:      store,
		Rituals:     store,
		Preferences: store,
		Stats:       store,
	}
}

// SetClock подменяет источник времени (для тестов).
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// id выдает следующий идентификатор. Вызывать под блокировкой на запись.
func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// --- Пользователи --- //

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return 0, ErrEmailTaken
		}
	}
	u := *user
	u.ID = s.id()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	user.ID, user.CreatedAt, user.UpdatedAt = u.ID, u.CreatedAt, u.UpdatedAt
	return u.ID, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByStripeCustomerID(_ context.Context, customerID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUserBilling(
	_ context.Context,
	userID int64,
	customerID, subscriptionID *string,
	status string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if customerID != nil {
		u.StripeCustomerID = ptr(*customerID)
	}
	if subscriptionID != nil {
		u.StripeSubscriptionID = ptr(*subscriptionID)
	}
	u.SubscriptionStatus = status
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

// --- Сессии таймера --- //

func (s *MemoryStore) CreateFocusSession(_ context.Context, fs *models.FocusSession) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs.ID = s.id()
	fs.CreatedAt = s.now()
	s.sessions[fs.ID] = *fs
	return fs.ID, nil
}

func (s *MemoryStore) GetFocusSession(_ context.Context, userID, id int64) (*models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.sessions[id]
	if !ok || fs.UserID != userID {
		return nil, ErrNotFound
	}
	return &fs, nil
}

func (s *MemoryStore) UpdateFocusSession(_ context.Context, fs *models.FocusSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[fs.ID]
	if !ok || cur.UserID != fs.UserID {
		return ErrNotFound
	}
	cur.EndTime = fs.EndTime
	cur.ActualSeconds = fs.ActualSeconds
	cur.Completed = fs.Completed
	cur.Notes = fs.Notes
	s.sessions[fs.ID] = cur
	return nil
}

func (s *MemoryStore) DeleteFocusSession(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.sessions[id]
	if !ok || fs.UserID != userID {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) ListFocusSessions(_ context.Context, userID int64, limit int) ([]models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.sessions, func(fs models.FocusSession) bool { return fs.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListFocusSessionsSince(
	_ context.Context,
	userID int64,
	since time.Time,
) ([]models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.sessions, func(fs models.FocusSession) bool {
		return fs.UserID == userID && !fs.StartTime.Before(since)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// --- Дневник --- //

func (s *MemoryStore) CreateJournalEntry(_ context.Context, e *models.JournalEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	if e.Tags == nil {
		e.Tags = []string{}
	}
	s.journal[e.ID] = cloneJournal(*e)
	return e.ID, nil
}

func (s *MemoryStore) GetJournalEntry(_ context.Context, userID, id int64) (*models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.journal[id]
	if !ok || e.UserID != userID {
		return nil, ErrNotFound
	}
	e = cloneJournal(e)
	return &e, nil
}

func (s *MemoryStore) UpdateJournalEntry(_ context.Context, e *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.journal[e.ID]
	if !ok || cur.UserID != e.UserID {
		return ErrNotFound
	}
	upd := cloneJournal(*e)
	upd.CreatedAt = cur.CreatedAt
	upd.UpdatedAt = s.now()
	s.journal[e.ID] = upd
	e.UpdatedAt = upd.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteJournalEntry(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.journal[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	delete(s.journal, id)
	return nil
}

func (s *MemoryStore) ListJournalEntries(
	_ context.Context,
	userID int64,
	filter models.JournalFilter,
) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.journal, func(e models.JournalEntry) bool {
		if e.UserID != userID {
			return false
		}
		if filter.Mood != "" && e.Mood != filter.Mood {
			return false
		}
		return filter.Tag == "" || slices.Contains(e.Tags, filter.Tag)
	})
	for i := range out {
		out[i] = cloneJournal(out[i])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListJournalEntriesSince(
	_ context.Context,
	userID int64,
	since time.Time,
) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.journal, func(e models.JournalEntry) bool {
		return e.UserID == userID && !e.CreatedAt.Before(since)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Голосовые заметки и клоны --- //

func (s *MemoryStore) CreateVoiceNote(_ context.Context, n *models.VoiceNote) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.id()
	n.CreatedAt = s.now()
	s.notes[n.ID] = *n
	return n.ID, nil
}

func (s *MemoryStore) GetVoiceNote(_ context.Context, userID, id int64) (*models.VoiceNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (s *MemoryStore) UpdateVoiceNoteAnalysis(
	_ context.Context,
	userID, id int64,
	transcription *string,
	insights *models.Insights,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Transcription = transcription
	n.AIInsights = insights
	s.notes[id] = n
	return nil
}

func (s *MemoryStore) DeleteVoiceNote(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

func (s *MemoryStore) ListVoiceNotes(_ context.Context, userID int64) ([]models.VoiceNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.notes, func(n models.VoiceNote) bool { return n.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateVoiceClone(_ context.Context, c *models.VoiceClone) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CreatedAt = s.now()
	s.clones[c.ID] = *c
	return c.ID, nil
}

func (s *MemoryStore) GetVoiceClone(_ context.Context, userID, id int64) (*models.VoiceClone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clones[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) DeleteVoiceClone(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clones[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(s.clones, id)
	return nil
}

func (s *MemoryStore) ListVoiceClones(_ context.Context, userID int64) ([]models.VoiceClone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.clones, func(c models.VoiceClone) bool { return c.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// --- Привычки --- //

func (s *MemoryStore) CreateHabit(_ context.Context, h *models.Habit) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.id()
	h.CreatedAt = s.now()
	h.UpdatedAt = h.CreatedAt
	s.habits[h.ID] = *h
	return h.ID, nil
}

func (s *MemoryStore) GetHabit(_ context.Context, userID, id int64) (*models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (s *MemoryStore) UpdateHabit(_ context.Context, h *models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.habits[h.ID]
	if !ok || cur.UserID != h.UserID {
		return ErrNotFound
	}
	upd := *h
	upd.CreatedAt = cur.CreatedAt
	upd.UpdatedAt = s.now()
	s.habits[h.ID] = upd
	h.UpdatedAt = upd.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteHabit(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return ErrNotFound
	}
	delete(s.habits, id)
	for eid, e := range s.habitEntries {
		if e.HabitID == id {
			delete(s.habitEntries, eid)
		}
	}
	for sid, st := range s.struggles {
		if st.HabitID == id {
			delete(s.struggles, sid)
		}
	}
	return nil
}

func (s *MemoryStore) ListHabits(_ context.Context, userID int64, activeOnly bool) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.habits, func(h models.Habit) bool {
		return h.UserID == userID && (h.IsActive || !activeOnly)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateHabitEntry(_ context.Context, e *models.HabitEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[e.HabitID]; !ok {
		return 0, ErrNotFound
	}
	for _, cur := range s.habitEntries {
		if cur.HabitID == e.HabitID && cur.Date == e.Date {
			return 0, ErrDuplicateEntry
		}
	}
	e.ID = s.id()
	e.CreatedAt = s.now()
	s.habitEntries[e.ID] = *e
	return e.ID, nil
}

func (s *MemoryStore) GetHabitEntryByDate(
	_ context.Context,
	userID, habitID int64,
	date string,
) (*models.HabitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.habitEntries {
		if e.HabitID == habitID && e.UserID == userID && e.Date == date {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteHabitEntry(_ context.Context, userID, habitID, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.habitEntries[entryID]
	if !ok || e.UserID != userID || e.HabitID != habitID {
		return ErrNotFound
	}
	delete(s.habitEntries, entryID)
	return nil
}

func (s *MemoryStore) ListHabitEntries(
	_ context.Context,
	userID, habitID int64,
	from, to string,
) ([]models.HabitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Строки YYYY-MM-DD сравниваются лексикографически так же, как даты.
	out := collect(s.habitEntries, func(e models.HabitEntry) bool {
		return e.UserID == userID && e.HabitID == habitID &&
			(from == "" || e.Date >= from) && (to == "" || e.Date <= to)
	})
	sortEntries(out)
	return out, nil
}

func (s *MemoryStore) ListUserHabitEntriesSince(
	_ context.Context,
	userID int64,
	from string,
) ([]models.HabitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.habitEntries, func(e models.HabitEntry) bool {
		return e.UserID == userID && e.Date >= from
	})
	sortEntries(out)
	return out, nil
}

func (s *MemoryStore) CreateHabitStruggle(_ context.Context, st *models.HabitStruggle) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.id()
	st.CreatedAt = s.now()
	s.struggles[st.ID] = *st
	return st.ID, nil
}

func (s *MemoryStore) ListHabitStruggles(_ context.Context, userID, habitID int64) ([]models.HabitStruggle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.struggles, func(st models.HabitStruggle) bool {
		return st.UserID == userID && st.HabitID == habitID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// --- Ритуалы --- //

func (s *MemoryStore) ListRituals(_ context.Context, userID int64) ([]models.ResetRitual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.rituals, func(r models.ResetRitual) bool {
		return r.UserID == nil || *r.UserID == userID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetRitual(_ context.Context, userID, id int64) (*models.ResetRitual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rituals[id]
	if !ok || (r.UserID != nil && *r.UserID != userID) {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) CreateRitual(_ context.Context, r *models.ResetRitual) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRitualID++
	r.ID = s.nextRitualID
	r.CreatedAt = s.now()
	s.rituals[r.ID] = *r
	return r.ID, nil
}

func (s *MemoryStore) DeleteRitual(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rituals[id]
	if !ok || r.UserID == nil || *r.UserID != userID {
		return ErrNotFound
	}
	delete(s.rituals, id)
	for cid, c := range s.completions {
		if c.RitualID == id {
			delete(s.completions, cid)
		}
	}
	return nil
}

func (s *MemoryStore) CreateResetCompletion(_ context.Context, c *models.ResetCompletion) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CompletedAt = s.now()
	s.completions[c.ID] = *c
	return c.ID, nil
}

func (s *MemoryStore) ListResetCompletions(
	_ context.Context,
	userID int64,
	limit int,
) ([]models.ResetCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.completions, func(c models.ResetCompletion) bool { return c.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Настройки --- //

func (s *MemoryStore) GetPreferences(_ context.Context, userID int64) (*models.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpsertPreferences(_ context.Context, p *models.UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now()
	s.prefs[p.UserID] = *p
	return nil
}

// --- Агрегаты --- //

func (s *MemoryStore) SumFocusSeconds(_ context.Context, userID int64, from, to time.Time) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var seconds, sessions int
	for _, fs := range s.sessions {
		if fs.UserID != userID || fs.Type != models.SessionTypeFocus {
			continue
		}
		if fs.StartTime.Before(from) || !fs.StartTime.Before(to) {
			continue
		}
		seconds += fs.ActualSeconds
		sessions++
	}
	return seconds, sessions, nil
}

func (s *MemoryStore) CountCompletedSessions(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(collect(s.sessions, func(fs models.FocusSession) bool {
		return fs.UserID == userID && fs.Completed && fs.Type == models.SessionTypeFocus
	})), nil
}

func (s *MemoryStore) CountActiveHabits(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(collect(s.habits, func(h models.Habit) bool { return h.UserID == userID && h.IsActive })), nil
}

func (s *MemoryStore) CountHabitsCompletedOn(_ context.Context, userID int64, date string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	done := make(map[int64]struct{})
	for _, e := range s.habitEntries {
		if e.UserID != userID || e.Date != date {
			continue
		}
		if h, ok := s.habits[e.HabitID]; ok && h.IsActive {
			done[e.HabitID] = struct{}{}
		}
	}
	return len(done), nil
}

func (s *MemoryStore) CountJournalEntriesSince(_ context.Context, userID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(collect(s.journal, func(e models.JournalEntry) bool {
		return e.UserID == userID && !e.CreatedAt.Before(since)
	})), nil
}

func (s *MemoryStore) CountVoiceNotes(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(collect(s.notes, func(n models.VoiceNote) bool { return n.UserID == userID })), nil
}

// --- Вспомогательные функции --- //

func collect[T any](m map[int64]T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortEntries(entries []models.HabitEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date == entries[j].Date {
			return entries[i].HabitID < entries[j].HabitID
		}
		return entries[i].Date < entries[j].Date
	})
}

func cloneJournal(e models.JournalEntry) models.JournalEntry {
	e.Tags = slices.Clone(e.Tags)
	if e.AIInsights != nil {
		ins := *e.AIInsights
		ins.Themes = slices.Clone(ins.Themes)
		e.AIInsights = &ins
	}
	return e
}

func ptr[T any](v T) *T {
	return &v
}
