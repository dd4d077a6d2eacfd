package services

import (
	"math"
	"sort"

	"github.com/maynagashev/flowkeeper/models"
)

// Границы окна прогресса привычек.
const (
	DefaultProgressDays = 30
	MaxProgressDays     = 365
)

// habitDays - множество календарных дней с отметками привычки.
type habitDays map[Day]struct{}

func newHabitDays(entries []models.HabitEntry) habitDays {
	days := make(habitDays, len(entries))
	for _, e := range entries {
		d, err := ParseDay(e.Date)
		if err != nil {
			continue
		}
		days[d] = struct{}{}
	}
	return days
}

func (h habitDays) has(d Day) bool {
	_, ok := h[d]
	return ok
}

// sorted возвращает дни по возрастанию.
func (h habitDays) sorted() []Day {
	out := make([]Day, 0, len(h))
	for d := range h {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// weekCounts считает отметки по ISO-неделям (ключ - понедельник).
func (h habitDays) weekCounts() map[Day]int {
	counts := make(map[Day]int)
	for d := range h {
		counts[d.WeekStart()]++
	}
	return counts
}

// dailyCurrentStreak - подряд идущие дни с отметкой, заканчивающиеся сегодня
// или вчера, если сегодня еще не отмечено.
func dailyCurrentStreak(days habitDays, today Day) int {
	d := today
	if !days.has(d) {
		d = d.AddDays(-1)
	}
	streak := 0
	for days.has(d) {
		streak++
		d = d.AddDays(-1)
	}
	return streak
}

// dailyLongestStreak - самая длинная серия подряд идущих дней не позже today.
func dailyLongestStreak(days habitDays, today Day) int {
	longest, run := 0, 0
	var prev Day
	for i, d := range days.sorted() {
		if d.After(today) {
			break
		}
		if i > 0 && prev.AddDays(1) == d {
			run++
		} else {
			run = 1
		}
		prev = d
		longest = max(longest, run)
	}
	return longest
}

// weeklyCurrentStreak - подряд идущие выполненные недели. Текущая неделя
// увеличивает серию, если уже выполнена, но не прерывает ее.
func weeklyCurrentStreak(weeks map[Day]int, target int, today Day) int {
	w := today.WeekStart()
	streak := 0
	if weeks[w] >= target {
		streak++
	}
	for w = w.AddDays(-7); weeks[w] >= target; w = w.AddDays(-7) {
		streak++
	}
	return streak
}

// weeklyLongestStreak - самая длинная серия подряд выполненных недель.
func weeklyLongestStreak(weeks map[Day]int, target int, today Day) int {
	met := make([]Day, 0, len(weeks))
	for w, n := range weeks {
		if n >= target && !w.After(today) {
			met = append(met, w)
		}
	}
	sort.Slice(met, func(i, j int) bool { return met[i].Before(met[j]) })

	longest, run := 0, 0
	for i, w := range met {
		if i > 0 && met[i-1].AddDays(7) == w {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// currentStreak считает текущую серию с учетом периодичности привычки.
func currentStreak(h *models.Habit, days habitDays, today Day) int {
	if h.Frequency == models.FrequencyWeekly {
		return weeklyCurrentStreak(days.weekCounts(), weeklyTarget(h), today)
	}
	return dailyCurrentStreak(days, today)
}

// habitProgress считает прогресс привычки за окно из windowDays дней,
// заканчивающееся today. Окно не начинается раньше дня создания привычки.
func habitProgress(h *models.Habit, entries []models.HabitEntry, created, today Day, windowDays int) models.HabitProgress {
	days := newHabitDays(entries)

	first := today.AddDays(-(windowDays - 1))
	if first.Before(created) {
		first = created
	}
	if first.After(today) {
		first = today
	}
	total := first.DaysUntil(today) + 1

	completed := 0
	var last *Day
	for d := range days {
		if d.After(today) {
			continue
		}
		if !d.Before(first) {
			completed++
		}
		if last == nil || d.After(*last) {
			dd := d
			last = &dd
		}
	}

	p := models.HabitProgress{
		HabitID:       h.ID,
		Name:          h.Name,
		Frequency:     h.Frequency,
		CompletedDays: completed,
		TotalDays:     total,
	}
	if last != nil {
		s := last.String()
		p.LastCompleted = &s
	}

	if h.Frequency == models.FrequencyWeekly {
		target := weeklyTarget(h)
		weeks := days.weekCounts()
		p.CurrentStreak = weeklyCurrentStreak(weeks, target, today)
		p.LongestStreak = weeklyLongestStreak(weeks, target, today)
		periods := weeksBetween(first, today)
		p.CompletionRate = math.Min(1, float64(completed)/float64(target*periods))
	} else {
		p.CurrentStreak = dailyCurrentStreak(days, today)
		p.LongestStreak = dailyLongestStreak(days, today)
		p.CompletionRate = float64(completed) / float64(total)
	}
	p.CompletionRate = math.Round(p.CompletionRate*1000) / 1000
	return p
}

// weeksBetween - число ISO-недель, которых касается окно [first, last].
func weeksBetween(first, last Day) int {
	return first.WeekStart().DaysUntil(last.WeekStart())/7 + 1
}

func weeklyTarget(h *models.Habit) int {
	if h.TargetPerWeek < 1 {
		return 1
	}
	return h.TargetPerWeek
}
