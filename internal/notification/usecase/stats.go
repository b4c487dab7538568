package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

const recentWindow = 7 * 24 * time.Hour

func (s *Usecase) recentSince() time.Time {
	return s.clock.Now().Add(-recentWindow)
}

type StatsOutput struct {
	Counts         entity.Counts
	ReadPercentage int64
}

// Stats summarizes the caller's inbox; Recent covers the last seven days.
func (s *Usecase) Stats(ctx context.Context) (*StatsOutput, error) {
	ctx, span := s.startSpan(ctx, "Stats")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.repoDB.CountNotifications(ctx, clm.UserID, s.recentSince())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count notifications", "account_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &StatsOutput{Counts: *counts, ReadPercentage: counts.ReadPercentage()}, nil
}
