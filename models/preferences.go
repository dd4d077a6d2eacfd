package models

import "time"

// UserPreferences - настройки таймера и интерфейса пользователя.
type UserPreferences struct {
	UserID                 int64     `db:"user_id" json:"userId"`
	FocusMinutes           int       `db:"focus_minutes" json:"focusMinutes" validate:"min=1,max=240"`
	ShortBreakMinutes      int       `db:"short_break_minutes" json:"shortBreakMinutes" validate:"min=1,max=60"`
	LongBreakMinutes       int       `db:"long_break_minutes" json:"longBreakMinutes" validate:"min=1,max=60"`
	SessionsUntilLongBreak int       `db:"sessions_until_long_break" json:"sessionsUntilLongBreak" validate:"min=1,max=12"`
	DailyFocusGoalMinutes  int       `db:"daily_focus_goal_minutes" json:"dailyFocusGoalMinutes" validate:"min=0,max=1440"`
	SoundEnabled           bool      `db:"sound_enabled" json:"soundEnabled"`
	Theme                  string    `db:"theme" json:"theme" validate:"oneof=system light dark"`
	Timezone               string    `db:"timezone" json:"timezone" validate:"required,max=64"`
	UpdatedAt              time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultPreferences возвращает настройки по умолчанию для пользователя.
func DefaultPreferences(userID int64) UserPreferences {
	return UserPreferences{
		UserID:                 userID,
		FocusMinutes:           25,
		ShortBreakMinutes:      5,
		LongBreakMinutes:       15,
		SessionsUntilLongBreak: 4,
		DailyFocusGoalMinutes:  120,
		SoundEnabled:           true,
		Theme:                  "system",
		Timezone:               "UTC",
	}
}
