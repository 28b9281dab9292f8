package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// StopPlaceRepo implements ports.StopPlaceRepository with pgx. It is the
// registry mapping Norwegian station names (and their common aliases) to
// NSR stop-place IDs.
type StopPlaceRepo struct {
	db *DB
}

// NewStopPlaceRepo creates a new StopPlaceRepo.
func NewStopPlaceRepo(db *DB) *StopPlaceRepo {
	return &StopPlaceRepo{db: db}
}

// Upsert inserts or updates one stop place.
func (r *StopPlaceRepo) Upsert(ctx context.Context, sp *domain.StopPlace) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO stop_places (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, sp.ID, sp.Name)
	return err
}

// GetByID returns one stop place, or nil when unknown.
func (r *StopPlaceRepo) GetByID(ctx context.Context, id string) (*domain.StopPlace, error) {
	var sp domain.StopPlace
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name FROM stop_places WHERE id = $1
	`, id).Scan(&sp.ID, &sp.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// SearchByName matches case-insensitively on name or alias, exact first,
// then prefix. "Oslo S" and "oslo s" resolve the same; "Lillehammer"
// matches "Lillehammer stasjon".
func (r *StopPlaceRepo) SearchByName(ctx context.Context, name string, limit int) ([]domain.StopPlace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty station name")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT sp.id, sp.name,
		       CASE WHEN lower(sp.name) = lower($1) OR lower(a.alias) = lower($1) THEN 0 ELSE 1 END AS rank
		FROM stop_places sp
		LEFT JOIN stop_place_aliases a ON a.stop_place_id = sp.id
		WHERE lower(sp.name) LIKE lower($1) || '%'
		   OR lower(a.alias) LIKE lower($1) || '%'
		ORDER BY rank, sp.name
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []domain.StopPlace
	for rows.Next() {
		var sp domain.StopPlace
		var rank int
		if err := rows.Scan(&sp.ID, &sp.Name, &rank); err != nil {
			return nil, err
		}
		places = append(places, sp)
	}
	return places, rows.Err()
}

// AddAlias registers an alternate spelling for a stop place.
func (r *StopPlaceRepo) AddAlias(ctx context.Context, stopPlaceID, alias string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO stop_place_aliases (stop_place_id, alias)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, stopPlaceID, alias)
	return err
}
