package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
)

// ReactionService records page reactions left during a view.
type ReactionService struct {
	views     repository.ViewRepository
	reactions repository.ReactionRepository
}

func NewReactionService(views repository.ViewRepository, reactions repository.ReactionRepository) *ReactionService {
	return &ReactionService{views: views, reactions: reactions}
}

// Record stores a reaction on pageNumber of viewID.
func (s *ReactionService) Record(ctx context.Context, viewID string, pageNumber int, kind string) (*model.Reaction, error) {
	if _, err := s.views.GetByID(ctx, viewID); err != nil {
		return nil, fmt.Errorf("get view: %w", err)
	}

	reaction := &model.Reaction{
		ViewID:     viewID,
		PageNumber: pageNumber,
		Type:       strings.TrimSpace(kind),
	}
	if err := s.reactions.Create(ctx, reaction); err != nil {
		return nil, fmt.Errorf("create reaction: %w", err)
	}
	return reaction, nil
}
