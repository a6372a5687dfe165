package replay

import (
	"context"
	"fmt"
)

// DateSource lists the distinct simulation-day labels present in the
// archived store, ordered ascending.
type DateSource interface {
	ArchivedDates(ctx context.Context) ([]string, error)
}

// LoadClock builds the replay clock from the archived date sequence.
// Replay cannot proceed without at least one archived day, so an empty
// archive is a fatal startup error.
func LoadClock(ctx context.Context, src DateSource, msPerDay int64) (*Clock, error) {
	dates, err := src.ArchivedDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load archived dates: %w", err)
	}
	if len(dates) == 0 {
		return nil, ErrNoDates
	}
	return NewClock(dates, msPerDay)
}
