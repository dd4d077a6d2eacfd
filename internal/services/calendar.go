package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// Calendar определяет "сегодня" в часовом поясе пользователя.
type Calendar struct {
	prefs  repository.PreferencesRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewCalendar создает календарь. now == nil означает time.Now.
func NewCalendar(prefs repository.PreferencesRepository, now func() time.Time, logger *zap.Logger) *Calendar {
	if now == nil {
		now = time.Now
	}
	return &Calendar{prefs: prefs, now: now, logger: logger.Named("calendar")}
}

// Location возвращает часовой пояс пользователя или UTC, если настройки не заданы.
func (c *Calendar) Location(ctx context.Context, userID int64) *time.Location {
	p, err := c.prefs.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.logger.Warn("Не удалось получить часовой пояс, используем UTC", zap.Int64("user_id", userID), zap.Error(err))
		}
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now возвращает текущее время в часовом поясе пользователя.
func (c *Calendar) Now(ctx context.Context, userID int64) time.Time {
	return c.now().In(c.Location(ctx, userID))
}

// Today возвращает текущий календарный день пользователя.
func (c *Calendar) Today(ctx context.Context, userID int64) Day {
	return DayOf(c.Now(ctx, userID))
}

// Day - календарный день без часового пояса. Хранится как полночь UTC.
type Day struct {
	t time.Time
}

// DayOf возвращает календарный день момента t в его часовом поясе.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDay разбирает день в формате YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return Day{}, err
	}
	return Day{t: t}, nil
}

func (d Day) String() string { return d.t.Format(models.DateLayout) }

// AddDays сдвигает день на n дней.
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

func (d Day) After(o Day) bool { return d.t.After(o.t) }

// DaysUntil возвращает количество дней от d до o (o - d).
func (d Day) DaysUntil(o Day) int { return int(o.t.Sub(d.t).Hours() / 24) }

// WeekStart возвращает понедельник ISO-недели, в которую входит день.
func (d Day) WeekStart() Day {
	offset := (int(d.t.Weekday()) + 6) % 7 // понедельник = 0
	return d.AddDays(-offset)
}

// Start возвращает начало дня в часовом поясе loc.
func (d Day) Start(loc *time.Location) time.Time {
	y, m, dd := d.t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}
