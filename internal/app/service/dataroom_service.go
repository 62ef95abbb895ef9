package service

import (
	"context"
	"fmt"

	"github.com/sifan077/DocLink/internal/app/repository"
	"golang.org/x/sync/errgroup"
)

const dataroomViewsLimit = 500

// DataroomViews is the dashboard listing of a dataroom's traffic.
type DataroomViews struct {
	Views   []repository.DataroomViewRow   `json:"views"`
	Viewers []repository.DataroomViewerRow `json:"viewers"`
}

// DataroomService serves dataroom analytics to team members.
type DataroomService struct {
	teams repository.TeamRepository
	stats repository.StatsRepository
}

func NewDataroomService(teams repository.TeamRepository, stats repository.StatsRepository) *DataroomService {
	return &DataroomService{teams: teams, stats: stats}
}

// ListViews returns recent views and per-viewer totals of a dataroom.
func (s *DataroomService) ListViews(ctx context.Context, userID, teamID, dataroomID string) (*DataroomViews, error) {
	if err := requireMember(ctx, s.teams, teamID, userID); err != nil {
		return nil, err
	}

	var out DataroomViews
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		views, err := s.stats.ListDataroomViews(gctx, teamID, dataroomID, dataroomViewsLimit)
		if err != nil {
			return fmt.Errorf("list dataroom views: %w", err)
		}
		out.Views = views
		return nil
	})
	g.Go(func() error {
		viewers, err := s.stats.ListDataroomViewers(gctx, teamID, dataroomID)
		if err != nil {
			return fmt.Errorf("list dataroom viewers: %w", err)
		}
		out.Viewers = viewers
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
