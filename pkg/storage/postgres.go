package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const linkColumns = `id, code, target_url, total_clicks, last_clicked, deleted, created_at, updated_at`

type PostgresLinkStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresLinkStorage(pool *pgxpool.Pool) *PostgresLinkStorage {
	return &PostgresLinkStorage{pool: pool}
}

func scanLink(row pgx.Row) (*Link, error) {
	var link Link
	err := row.Scan(&link.ID, &link.Code, &link.TargetURL, &link.TotalClicks,
		&link.LastClicked, &link.Deleted, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (s *PostgresLinkStorage) Create(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (code, target_url) VALUES ($1, $2)
		RETURNING ` + linkColumns
	row := s.pool.QueryRow(ctx, query, link.Code, link.TargetURL)
	created, err := scanLink(row)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return err
	}
	*link = *created
	return nil
}

func (s *PostgresLinkStorage) GetByCode(ctx context.Context, code string) (*Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = $1 AND NOT deleted`
	return scanLink(s.pool.QueryRow(ctx, query, code))
}

func (s *PostgresLinkStorage) CodeExists(ctx context.Context, code string, includeDeleted bool) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE code = $1 AND NOT deleted)`
	if includeDeleted {
		query = `SELECT EXISTS (SELECT 1 FROM links WHERE code = $1)`
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresLinkStorage) List(ctx context.Context, page, limit int, search string) ([]Link, int64, error) {
	where := `NOT deleted`
	args := []any{}
	if search != "" {
		where += ` AND (code ILIKE $1 OR target_url ILIKE $1)`
		args = append(args, "%"+search+"%")
	}

	var total int64
	countQuery := `SELECT count(*) FROM links WHERE ` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := fmt.Sprintf(`SELECT %s FROM links WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		linkColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var link Link
		err := rows.Scan(&link.ID, &link.Code, &link.TargetURL, &link.TotalClicks,
			&link.LastClicked, &link.Deleted, &link.CreatedAt, &link.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// RecordVisit is the single suspension point of the redirect path: counter
// increment and timestamp land in one statement so concurrent visits never
// lose updates and a cancelled request leaves no partial write.
func (s *PostgresLinkStorage) RecordVisit(ctx context.Context, code string, at time.Time) (*Link, error) {
	query := `UPDATE links
		SET total_clicks = total_clicks + 1, last_clicked = $2, updated_at = now()
		WHERE code = $1 AND NOT deleted
		RETURNING ` + linkColumns
	return scanLink(s.pool.QueryRow(ctx, query, code, at))
}

func (s *PostgresLinkStorage) MarkDeleted(ctx context.Context, code string) (bool, error) {
	query := `UPDATE links SET deleted = TRUE, updated_at = now()
		WHERE code = $1 AND NOT deleted`
	tag, err := s.pool.Exec(ctx, query, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
