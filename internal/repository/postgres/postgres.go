package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadwatch/backend/internal/domain"
)

// HazardRepository implements domain.HazardProvider on top of PostgreSQL.
// It only ever reads.
type HazardRepository struct {
	pool *pgxpool.Pool
}

// NewHazardRepository creates a new PostgreSQL hazard repository
func NewHazardRepository(pool *pgxpool.Pool) *HazardRepository {
	return &HazardRepository{pool: pool}
}

// Zones returns every accident zone in insertion order
func (r *HazardRepository) Zones(ctx context.Context) ([]domain.HazardZone, error) {
	query := `
		SELECT lat, lng, severity
		FROM hazard_zones
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query hazard zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.HazardZone
	for rows.Next() {
		var z domain.HazardZone
		if err := rows.Scan(&z.Location.Lat, &z.Location.Lng, &z.Severity); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan hazard zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read hazard zones: %w", err)
	}

	return zones, nil
}

// FixedHazards returns every speed camera in insertion order
func (r *HazardRepository) FixedHazards(ctx context.Context) ([]domain.FixedHazard, error) {
	query := `
		SELECT lat, lng
		FROM fixed_hazards
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query fixed hazards: %w", err)
	}
	defer rows.Close()

	var fixed []domain.FixedHazard
	for rows.Next() {
		var f domain.FixedHazard
		if err := rows.Scan(&f.Location.Lat, &f.Location.Lng); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan fixed hazard row: %w", err)
		}
		fixed = append(fixed, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read fixed hazards: %w", err)
	}

	return fixed, nil
}

// FatalityPercent reads the latest statistics row
func (r *HazardRepository) FatalityPercent(ctx context.Context) (float64, error) {
	query := `
		SELECT fatality_percent
		FROM hazard_stats
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var pct float64
	if err := r.pool.QueryRow(ctx, query).Scan(&pct); err != nil {
		return 0, fmt.Errorf("postgres: failed to query fatality percent: %w", err)
	}
	return pct, nil
}

// DeathCount reads (deaths, accidents) from the latest statistics row
func (r *HazardRepository) DeathCount(ctx context.Context) (int, int, error) {
	query := `
		SELECT deaths, accidents
		FROM hazard_stats
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var deaths, accidents int
	if err := r.pool.QueryRow(ctx, query).Scan(&deaths, &accidents); err != nil {
		return 0, 0, fmt.Errorf("postgres: failed to query death count: %w", err)
	}
	return deaths, accidents, nil
}

// Health checks database connectivity
func (r *HazardRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
