package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amara/cobagage/internal/model"
)

// ColisRepository provides database access for package records.
type ColisRepository struct {
	pool *pgxpool.Pool
}

// NewColisRepository creates a new repository backed by the given PG pool.
func NewColisRepository(pool *pgxpool.Pool) *ColisRepository {
	return &ColisRepository{pool: pool}
}

const colisColumns = `
	c.id, c.user_id, c.ville_envoi, c.ville_reception, c.poids,
	c.date_envoi, COALESCE(c.flexibilite, 0), COALESCE(c.urgence, ''),
	c.created_at, c.updated_at,
	u.id, u.name, u.phone`

// GetColisByID fetches a single package by id.
func (r *ColisRepository) GetColisByID(ctx context.Context, id string) (*model.Colis, error) {
	query := `
		SELECT ` + colisColumns + `
		FROM colis c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1
	`
	colis, err := scanColis(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("colis %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get colis %s: %w", id, err)
	}
	return colis, nil
}

// FindCandidateColis returns packages eligible to pair with a trip:
// desired date inside the window OR absent (flexible sender), weight
// within maxWeightKg, and a different owner than the trip's.
//
// Uses idx_colis_date_envoi and idx_colis_poids.
func (r *ColisRepository) FindCandidateColis(
	ctx context.Context,
	window model.DateWindow,
	maxWeightKg float64,
	excludeUserID string,
) ([]model.Colis, error) {
	query := `
		SELECT ` + colisColumns + `
		FROM colis c
		JOIN users u ON u.id = c.user_id
		WHERE (c.date_envoi IS NULL OR c.date_envoi BETWEEN $1 AND $2)
		  AND c.poids <= $3
		  AND c.user_id <> $4
		ORDER BY c.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, window.Start, window.End, maxWeightKg, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("find candidate colis: %w", err)
	}
	defer rows.Close()

	var candidates []model.Colis
	for rows.Next() {
		colis, err := scanColis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate colis: %w", err)
		}
		candidates = append(candidates, *colis)
	}
	return candidates, rows.Err()
}

// CreateColis inserts a new package and returns it with its generated id.
func (r *ColisRepository) CreateColis(ctx context.Context, colis *model.Colis) (*model.Colis, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO colis (id, user_id, ville_envoi, ville_reception, poids,
		                   date_envoi, flexibilite, urgence)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), NULLIF($8, ''))
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		id, colis.UserID, colis.VilleEnvoi, colis.VilleReception, colis.Poids,
		colis.DateEnvoi, colis.Flexibilite, string(colis.Urgence),
	).Scan(&colis.CreatedAt, &colis.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create colis: %w", err)
	}
	colis.ID = id
	return colis, nil
}

// scanColis reads one colis row, including the owner's public fields.
func scanColis(row pgx.Row) (*model.Colis, error) {
	var (
		colis   model.Colis
		user    model.UserPublic
		urgence string
	)
	err := row.Scan(
		&colis.ID, &colis.UserID, &colis.VilleEnvoi, &colis.VilleReception, &colis.Poids,
		&colis.DateEnvoi, &colis.Flexibilite, &urgence,
		&colis.CreatedAt, &colis.UpdatedAt,
		&user.ID, &user.Name, &user.Phone,
	)
	if err != nil {
		return nil, err
	}
	colis.Urgence = model.UrgencyLevel(urgence)
	colis.User = &user
	return &colis, nil
}
