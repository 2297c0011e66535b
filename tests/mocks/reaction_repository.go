package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"komentar/internal/domain"
)

type ReactionRepository struct {
	mock.Mock
}

func (m *ReactionRepository) Create(ctx context.Context, reaction *domain.Reaction) error {
	args := m.Called(ctx, reaction)
	return args.Error(0)
}

func (m *ReactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ReactionRepository) GetByTuple(ctx context.Context, commentID uuid.UUID, authorKey, emoji string) (*domain.Reaction, error) {
	args := m.Called(ctx, commentID, authorKey, emoji)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reaction), args.Error(1)
}

func (m *ReactionRepository) ListByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) ([]domain.Reaction, error) {
	args := m.Called(ctx, commentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reaction), args.Error(1)
}
