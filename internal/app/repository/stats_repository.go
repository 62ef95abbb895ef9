package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sifan077/DocLink/internal/app/model"
)

// Querier is the subset of pgxpool.Pool used by StatsRepository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DataroomViewRow is one dataroom visit as shown on the owner dashboard.
type DataroomViewRow struct {
	ID           string    `db:"id" json:"id"`
	LinkID       string    `db:"link_id" json:"linkId"`
	LinkName     *string   `db:"link_name" json:"linkName"`
	ViewerEmail  *string   `db:"viewer_email" json:"viewerEmail"`
	ViewerName   *string   `db:"viewer_name" json:"viewerName"`
	Verified     bool      `db:"verified" json:"verified"`
	ViewedAt     time.Time `db:"viewed_at" json:"viewedAt"`
	DataroomName string    `db:"dataroom_name" json:"dataroomName"`
	Internal     bool      `db:"internal" json:"internal"`
}

// DataroomViewerRow aggregates visits per viewer for a dataroom.
type DataroomViewerRow struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Verified     bool      `db:"verified" json:"verified"`
	Views        int64     `db:"views" json:"views"`
	LastViewedAt time.Time `db:"last_viewed_at" json:"lastViewedAt"`
}

// StatsRepository serves read-heavy dashboard queries over pgx.
type StatsRepository interface {
	ListDataroomViews(ctx context.Context, teamID, dataroomID string, limit uint64) ([]DataroomViewRow, error)
	ListDataroomViewers(ctx context.Context, teamID, dataroomID string) ([]DataroomViewerRow, error)
}

type statsRepository struct {
	db Querier
}

// NewStatsRepository returns a pgx-backed StatsRepository.
func NewStatsRepository(db Querier) StatsRepository {
	return &statsRepository{db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func dataroomViewsQuery(teamID, dataroomID string, limit uint64) sq.SelectBuilder {
	q := psql.
		Select(
			"v.id", "v.link_id", "l.name AS link_name", "v.viewer_email", "v.viewer_name",
			"v.verified", "v.viewed_at", "d.name AS dataroom_name",
			"EXISTS (SELECT 1 FROM team_members tm WHERE tm.team_id = d.team_id AND tm.email = v.viewer_email) AS internal",
		).
		From("views v").
		Join("datarooms d ON d.id = v.dataroom_id").
		LeftJoin("links l ON l.id = v.link_id").
		Where(sq.Eq{
			"v.dataroom_id": dataroomID,
			"d.team_id":     teamID,
			"v.view_type":   model.ViewTypeDataroom,
		}).
		OrderBy("v.viewed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

func dataroomViewersQuery(teamID, dataroomID string) sq.SelectBuilder {
	return psql.
		Select("vw.id", "vw.email", "vw.verified", "COUNT(v.id) AS views", "MAX(v.viewed_at) AS last_viewed_at").
		From("viewers vw").
		Join("views v ON v.viewer_id = vw.id").
		Where(sq.Eq{"v.dataroom_id": dataroomID, "v.team_id": teamID}).
		GroupBy("vw.id", "vw.email", "vw.verified").
		OrderBy("last_viewed_at DESC")
}

func (r *statsRepository) ListDataroomViews(ctx context.Context, teamID, dataroomID string, limit uint64) ([]DataroomViewRow, error) {
	query, args, err := dataroomViewsQuery(teamID, dataroomID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dataroom views query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dataroom views: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[DataroomViewRow])
}

func (r *statsRepository) ListDataroomViewers(ctx context.Context, teamID, dataroomID string) ([]DataroomViewerRow, error) {
	query, args, err := dataroomViewersQuery(teamID, dataroomID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dataroom viewers query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dataroom viewers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[DataroomViewerRow])
}
