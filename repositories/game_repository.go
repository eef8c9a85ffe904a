package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/game-orchestrator/models"
)

var ErrGameNotFound = errors.New("game not found")

// GameRepository persists snapshots of external game sessions: status,
// per-team score, winner and player→team assignment. Display services read
// these rows; the live tracking entry stays in the in-memory registry.
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id string) (*models.Game, error)
	UpdateStatus(ctx context.Context, id string, status models.GameStatus) error
	SetWinner(ctx context.Context, id string, team string) error
	UpdateScore(ctx context.Context, id string, team string, score int) error
	AssignPlayerTeam(ctx context.Context, id string, username string, team string) error
	// AbortAllActive marks every non-terminal game aborted. Startup
	// reconciliation after a crash.
	AbortAllActive(ctx context.Context) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO games (id, game_mode, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err = tx.QueryRowContext(ctx, query, game.ID, game.GameMode, game.Status).
		Scan(&game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game %s: %w", game.ID, err)
	}

	playerQuery := `INSERT INTO game_players (game_id, username) VALUES ($1, $2)`
	for _, username := range game.Players {
		if _, err := tx.ExecContext(ctx, playerQuery, game.ID, username); err != nil {
			return fmt.Errorf("failed to add player %q to game %s: %w", username, game.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game creation: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	query := `
		SELECT id, game_mode, status, winner, created_at, updated_at
		FROM games
		WHERE id = $1`

	game := &models.Game{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&game.ID,
		&game.GameMode,
		&game.Status,
		&game.Winner,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT username, team FROM game_players WHERE game_id = $1 ORDER BY username`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list players of game %s: %w", id, err)
	}
	defer rows.Close()

	game.Teams = make(map[string]string)
	for rows.Next() {
		var username string
		var team sql.NullString
		if err := rows.Scan(&username, &team); err != nil {
			return nil, fmt.Errorf("failed to scan player of game %s: %w", id, err)
		}
		game.Players = append(game.Players, username)
		if team.Valid {
			game.Teams[username] = team.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players of game %s: %w", id, err)
	}

	scoreRows, err := r.db.QueryContext(ctx,
		`SELECT team, score FROM game_scores WHERE game_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores of game %s: %w", id, err)
	}
	defer scoreRows.Close()

	game.Scores = make(map[string]int)
	for scoreRows.Next() {
		var team string
		var score int
		if err := scoreRows.Scan(&team, &score); err != nil {
			return nil, fmt.Errorf("failed to scan score of game %s: %w", id, err)
		}
		game.Scores[team] = score
	}
	if err := scoreRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores of game %s: %w", id, err)
	}

	return game, nil
}

func (r *postgresGameRepository) UpdateStatus(ctx context.Context, id string, status models.GameStatus) error {
	query := `UPDATE games SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status of game %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) SetWinner(ctx context.Context, id string, team string) error {
	query := `UPDATE games SET winner = $2, updated_at = now() WHERE id = $1 AND winner IS NULL`

	// winner IS NULL keeps the first reported winner; a second report is a
	// no-op rather than an overwrite.
	result, err := r.db.ExecContext(ctx, query, id, team)
	if err != nil {
		return fmt.Errorf("failed to set winner of game %s: %w", id, err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) UpdateScore(ctx context.Context, id string, team string, score int) error {
	query := `
		INSERT INTO game_scores (game_id, team, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, team) DO UPDATE SET score = EXCLUDED.score`

	if _, err := r.db.ExecContext(ctx, query, id, team, score); err != nil {
		return fmt.Errorf("failed to update score of game %s: %w", id, err)
	}
	return nil
}

func (r *postgresGameRepository) AssignPlayerTeam(ctx context.Context, id string, username string, team string) error {
	query := `
		INSERT INTO game_players (game_id, username, team)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, username) DO UPDATE SET team = EXCLUDED.team`

	if _, err := r.db.ExecContext(ctx, query, id, username, team); err != nil {
		return fmt.Errorf("failed to assign player %q to team %q in game %s: %w", username, team, id, err)
	}
	return nil
}

func (r *postgresGameRepository) AbortAllActive(ctx context.Context) error {
	query := `
		UPDATE games SET status = $1, updated_at = now()
		WHERE status NOT IN ($2, $3)`

	_, err := r.db.ExecContext(ctx, query,
		models.GameStatusAborted, models.GameStatusFinished, models.GameStatusAborted)
	if err != nil {
		return fmt.Errorf("failed to abort active games: %w", err)
	}
	return nil
}
