package models

// DashboardStats - агрегаты для главной страницы.
type DashboardStats struct {
	TodayFocusMinutes      int     `json:"todayFocusMinutes"`
	TodaySessions          int     `json:"todaySessions"`
	WeekFocusMinutes       int     `json:"weekFocusMinutes"`
	CompletedSessions      int     `json:"completedSessions"`
	ActiveHabits           int     `json:"activeHabits"`
	HabitsCompletedToday   int     `json:"habitsCompletedToday"`
	JournalEntriesThisWeek int     `json:"journalEntriesThisWeek"`
	VoiceNotes             int     `json:"voiceNotes"`
	FocusStreakDays        int     `json:"focusStreakDays"`
	DailyGoalMinutes       int     `json:"dailyGoalMinutes"`
	DailyGoalProgress      float64 `json:"dailyGoalProgress"`
}

// FocusDay - фокус-время за один день для графика аналитики.
type FocusDay struct {
	Date         string `json:"date"`
	FocusMinutes int    `json:"focusMinutes"`
	Sessions     int    `json:"sessions"`
}

// PaymentIntentRequest - тело запроса на создание платежа.
type PaymentIntentRequest struct {
	Amount   int64  `json:"amount" validate:"required,min=50"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// PaymentIntentResponse - ответ с секретом для клиента Stripe.
type PaymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// SubscriptionRequest - тело запроса на оформление подписки.
type SubscriptionRequest struct {
	PriceID string `json:"priceId" validate:"omitempty,max=100"`
}

// SubscriptionResponse - состояние подписки пользователя.
type SubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId,omitempty"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	Status         string `json:"status"`
}
