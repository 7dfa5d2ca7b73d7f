package app

import (
	"context"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

type SubscriptionService struct {
	repo port.SubscriberRepository
}

func NewSubscriptionService(repo port.SubscriberRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo}
}

func (s *SubscriptionService) Get(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *SubscriptionService) SetState(ctx context.Context, userID, chatID int64, state entity.SubscriberState) (*entity.Subscriber, error) {
	sub, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	sub.SetState(state)
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *SubscriptionService) Subscribe(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	return s.SetState(ctx, userID, chatID, entity.StateActive)
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	return s.SetState(ctx, userID, chatID, entity.StatePaused)
}

// ActiveChats возвращает чаты, которым нужно слать уведомления.
func (s *SubscriptionService) ActiveChats(ctx context.Context) ([]int64, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(subs))
	chats := make([]int64, 0, len(subs))
	for _, sub := range subs {
		if !sub.Active() || seen[sub.ChatID] {
			continue
		}
		seen[sub.ChatID] = true
		chats = append(chats, sub.ChatID)
	}
	return chats, nil
}
