package usecase

import (
	"context"

	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// requireAuth returns the session of the account calling an inbox operation
// and tags the current span with it. Every inbox operation is scoped to this
// account, so a request without one stops here with 401.
func (s *Usecase) requireAuth(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.UserID <= 0 {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("enduser.id", clm.UserID))
	return clm, nil
}
