package brackets

import "errors"

var (
	// ErrInvalidBracketSize is returned by Build when the team count is not
	// a power of two >= 2. Byes are not supported: rooms only reach startup
	// with a full roster, so a partial bracket means a caller bug.
	ErrInvalidBracketSize = errors.New("bracket size must be a power of two (minimum 2)")

	ErrUnknownTeam = errors.New("team does not belong to this match")
)
