package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/game-orchestrator/models"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository is the narrow persisted-state contract for player
// presence. Status transitions always go through here so display services
// read a consistent value.
type PlayerRepository interface {
	GetOrCreate(ctx context.Context, username string) (*models.Player, error)
	UpdateStatus(ctx context.Context, username string, status models.PlayerStatus) error
	UpdateNickname(ctx context.Context, username, nickname string) error
	// ResetAllStatuses marks every non-inactive player inactive. Startup
	// reconciliation: the process may have died holding players in_game.
	ResetAllStatuses(ctx context.Context) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) GetOrCreate(ctx context.Context, username string) (*models.Player, error) {
	query := `
		INSERT INTO players (username, status)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, nickname, status, updated_at`

	player := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, username, models.PlayerStatusInactive).Scan(
		&player.ID,
		&player.Username,
		&player.Nickname,
		&player.Status,
		&player.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create player %q: %w", username, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) UpdateStatus(ctx context.Context, username string, status models.PlayerStatus) error {
	query := `
		INSERT INTO players (username, status)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, username, status); err != nil {
		return fmt.Errorf("failed to update status of player %q: %w", username, err)
	}
	return nil
}

func (r *postgresPlayerRepository) UpdateNickname(ctx context.Context, username, nickname string) error {
	query := `UPDATE players SET nickname = $2, updated_at = now() WHERE username = $1`

	result, err := r.db.ExecContext(ctx, query, username, nickname)
	if err != nil {
		return fmt.Errorf("failed to update nickname of player %q: %w", username, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ResetAllStatuses(ctx context.Context) error {
	query := `UPDATE players SET status = $1, updated_at = now() WHERE status <> $1`

	if _, err := r.db.ExecContext(ctx, query, models.PlayerStatusInactive); err != nil {
		return fmt.Errorf("failed to reset player statuses: %w", err)
	}
	return nil
}
