package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/jwt"
)

// Me returns the account behind the session token in ctx.
func (s *Usecase) Me(ctx context.Context) (*entity.AccountView, error) {
	ctx, span := s.startSpan(ctx, "Me")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	acc, err := s.repoDB.GetAccountByID(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "session for missing account", "account_id", clm.UserID)
		return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by id", "account_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	view := acc.View()
	return &view, nil
}
