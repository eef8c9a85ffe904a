package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Dosada05/game-orchestrator/brackets"
	"github.com/Dosada05/game-orchestrator/models"
)

// Tick advances every live bracket by one step and pushes the resulting
// tree export to the room's hub clients. It runs on the supervisory loop
// before the watchdog pass, so matches observe terminal game statuses
// before the registry drains them.
func (s *roomService) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if r.tournament == nil || r.status.Terminal() {
			continue
		}

		payload := r.tournament.Update(ctx, s.games)
		s.hub.BroadcastToRoom(r.id, payload)

		// Aborted first: an aborted root also reads as finished, and the
		// abort path must still force-abort live games in other branches.
		switch {
		case r.tournament.Tree.Aborted():
			s.abortLocked(ctx, r)
		case r.tournament.Tree.Finished():
			s.finishLocked(ctx, r)
		default:
			r.status = liveRoomStatus(r.tournament)
		}
	}
}

// liveRoomStatus mirrors the state of the bracket's active matches:
// loading while games are still being set up, running once any match has
// play in progress.
func liveRoomStatus(t *brackets.Tournament) models.RoomStatus {
	for _, m := range t.Tree.Matches() {
		if m.Status == brackets.MatchStatusInProgress {
			return models.RoomStatusRunning
		}
	}
	return models.RoomStatusLoading
}

func (s *roomService) finishLocked(ctx context.Context, r *room) {
	r.status = models.RoomStatusFinished
	winner := r.tournament.Tree.Winner()

	message := map[string]interface{}{"type": "tournament_finished"}
	if winner != nil {
		message["winner"] = winner.Export()
	}
	s.hub.BroadcastToRoom(r.id, message)
	s.logger.Info("tournament finished", slog.String("tournament_id", r.id))

	s.archive(ctx, r)
}

// archive uploads the final bracket export so display services can read
// finished tournaments without keeping the room alive.
func (s *roomService) archive(ctx context.Context, r *room) {
	if s.uploader == nil {
		return
	}

	body, err := json.Marshal(r.tournament.ExportUpdate())
	if err != nil {
		s.logger.Error("failed to encode tournament archive", slog.String("tournament_id", r.id), slog.Any("error", err))
		return
	}
	url, err := s.uploader.Upload(ctx, archiveKey(r.id), bytes.NewReader(body), "application/json")
	if err != nil {
		s.logger.Error("failed to archive tournament", slog.String("tournament_id", r.id), slog.Any("error", err))
		return
	}
	s.logger.Info("tournament archived", slog.String("tournament_id", r.id), slog.String("url", url))
}

func archiveKey(tournamentID string) string {
	return fmt.Sprintf("tournaments/%s.json", tournamentID)
}
