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

// TrajetRepository provides database access for trip records.
type TrajetRepository struct {
	pool *pgxpool.Pool
}

// NewTrajetRepository creates a new repository backed by the given PG pool.
func NewTrajetRepository(pool *pgxpool.Pool) *TrajetRepository {
	return &TrajetRepository{pool: pool}
}

const trajetColumns = `
	t.id, t.user_id, t.ville_depart, t.ville_arrivee, t.date_voyage,
	t.kilos_disponibles, t.prix_par_kilo, t.created_at, t.updated_at,
	u.id, u.name, u.phone`

// GetTrajetByID fetches a single trip by id.
func (r *TrajetRepository) GetTrajetByID(ctx context.Context, id string) (*model.Trajet, error) {
	query := `
		SELECT ` + trajetColumns + `
		FROM trajets t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1
	`
	trajet, err := scanTrajet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trajet %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get trajet %s: %w", id, err)
	}
	return trajet, nil
}

// FindCandidateTrajets returns trips eligible to carry a package:
// travel date inside the window, capacity of at least minCapacityKg,
// and a different owner than the package's.
//
// The capacity pre-filter keeps infeasible pairs out of scoring.
// Uses idx_trajets_date_voyage and idx_trajets_kilos.
func (r *TrajetRepository) FindCandidateTrajets(
	ctx context.Context,
	window model.DateWindow,
	minCapacityKg float64,
	excludeUserID string,
) ([]model.Trajet, error) {
	query := `
		SELECT ` + trajetColumns + `
		FROM trajets t
		JOIN users u ON u.id = t.user_id
		WHERE t.date_voyage BETWEEN $1 AND $2
		  AND t.kilos_disponibles >= $3
		  AND t.user_id <> $4
		ORDER BY t.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, window.Start, window.End, minCapacityKg, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("find candidate trajets: %w", err)
	}
	defer rows.Close()

	var candidates []model.Trajet
	for rows.Next() {
		trajet, err := scanTrajet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate trajet: %w", err)
		}
		candidates = append(candidates, *trajet)
	}
	return candidates, rows.Err()
}

// CreateTrajet inserts a new trip and returns it with its generated id.
func (r *TrajetRepository) CreateTrajet(ctx context.Context, trajet *model.Trajet) (*model.Trajet, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO trajets (id, user_id, ville_depart, ville_arrivee,
		                     date_voyage, kilos_disponibles, prix_par_kilo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		id, trajet.UserID, trajet.VilleDepart, trajet.VilleArrivee,
		trajet.DateVoyage, trajet.KilosDisponibles, trajet.PrixParKilo,
	).Scan(&trajet.CreatedAt, &trajet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create trajet: %w", err)
	}
	trajet.ID = id
	return trajet, nil
}

// scanTrajet reads one trajet row, including the owner's public fields.
func scanTrajet(row pgx.Row) (*model.Trajet, error) {
	var (
		trajet model.Trajet
		user   model.UserPublic
	)
	err := row.Scan(
		&trajet.ID, &trajet.UserID, &trajet.VilleDepart, &trajet.VilleArrivee, &trajet.DateVoyage,
		&trajet.KilosDisponibles, &trajet.PrixParKilo, &trajet.CreatedAt, &trajet.UpdatedAt,
		&user.ID, &user.Name, &user.Phone,
	)
	if err != nil {
		return nil, err
	}
	trajet.User = &user
	return &trajet, nil
}
