package entity

// SubscriberState состояние подписчика Telegram
type SubscriberState string

const (
	StateActive SubscriberState = "active" // Получает уведомления о прогоне
	StatePaused SubscriberState = "paused" // Отписался через /stop
)

// Subscriber чат, получающий уведомления о ходе прогона
type Subscriber struct {
	UserID int64           // Telegram User ID
	ChatID int64           // Telegram Chat ID
	State  SubscriberState // Текущее состояние подписки
}

// NewSubscriber создаёт активного подписчика
func NewSubscriber(userID, chatID int64) *Subscriber {
	return &Subscriber{
		UserID: userID,
		ChatID: chatID,
		State:  StateActive,
	}
}

// SetState обновляет состояние подписки
func (s *Subscriber) SetState(state SubscriberState) {
	s.State = state
}

// Active сообщает, нужно ли слать уведомления в этот чат
func (s *Subscriber) Active() bool {
	return s.State == StateActive
}
