package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/models"
	"golang.org/x/time/rate"
)

// NewGamePayload is the engine's creation request body.
type NewGamePayload struct {
	GameID      string             `json:"gameId"`
	AdminID     string             `json:"adminId"`
	GameMode    string             `json:"gameMode"`
	Modifiers   []string           `json:"modifiers"`
	PlayersList []string           `json:"playersList"`
	SpecialID   []models.SpecialID `json:"special_id"`
}

// EngineNotifier is the outbound face of the external game engine and the
// AI opponent service.
type EngineNotifier interface {
	// NotifyNewGame succeeds only on an explicit 201 from the engine.
	NotifyNewGame(ctx context.Context, mode config.GameMode, payload NewGamePayload) error
	// NotifyAbort succeeds only on an explicit 204.
	NotifyAbort(ctx context.Context, mode config.GameMode, gameID string) error
	// CreateAI registers one AI id pair with the AI service.
	CreateAI(ctx context.Context, gameID string, id models.SpecialID) error
}

type engineClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	aiURL      string
	logger     *slog.Logger
}

// NewEngineClient builds the HTTP client used for every engine and AI call.
// The limiter bounds how hard a flapping watchdog can hit a dying engine.
func NewEngineClient(aiURL string, logger *slog.Logger) EngineNotifier {
	return &engineClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 40),
		aiURL:      aiURL,
		logger:     logger,
	}
}

func (c *engineClient) NotifyNewGame(ctx context.Context, mode config.GameMode, payload NewGamePayload) error {
	status, err := c.postJSON(ctx, mode.NewGameURL, payload)
	if err != nil {
		return fmt.Errorf("%w: new_game request failed: %v", ErrRemoteUnavailable, err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%w: new_game returned status %d", ErrRemoteUnavailable, status)
	}
	return nil
}

func (c *engineClient) NotifyAbort(ctx context.Context, mode config.GameMode, gameID string) error {
	status, err := c.postJSON(ctx, mode.AbortGameURL, map[string]string{"gameId": gameID})
	if err != nil {
		return fmt.Errorf("%w: abort_game request failed: %v", ErrRemoteUnavailable, err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: abort_game returned status %d", ErrRemoteUnavailable, status)
	}
	return nil
}

func (c *engineClient) CreateAI(ctx context.Context, gameID string, id models.SpecialID) error {
	body := map[string]interface{}{
		"game_id": gameID,
		"ai_id":   id,
	}
	status, err := c.postJSON(ctx, c.aiURL, body)
	if err != nil {
		return fmt.Errorf("%w: create_ia request failed: %v", ErrRemoteUnavailable, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: create_ia returned status %d", ErrRemoteUnavailable, status)
	}
	return nil
}

func (c *engineClient) postJSON(ctx context.Context, url string, body interface{}) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
