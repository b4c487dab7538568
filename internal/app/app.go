package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/coincraze/authd/internal/pkg/authz"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"github.com/coincraze/authd/internal/pkg/hash"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"github.com/coincraze/authd/internal/pkg/mail"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/pkg/router"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	configPath string
	config     config.Config
	ins        instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	password  hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	mail      mail.Mail
	messaging messaging.Broker
	authz     authz.Authorizer
	authzSync *authz.Reloader

	// server
	router     *router.Router
	httpServer *http.Server

	// closers release resources in reverse order of opening
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds the application from the config file at configPath, or from
// CONFIG_PATH when it is empty. When a step fails, whatever was opened
// before it is released and the error names the step.
func New(configPath string) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel, configPath: configPath}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"jwt", a.initJWT},
		{"database", a.initDatabase},
		{"redis", a.initCache},
		{"mail", a.initMail},
		{"messaging", a.initMessaging},
		{"authz", a.initAuthz},
		{"http server", a.initHTTPServer},
		{"modules", a.initModules},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			cancel()
			sctx, done := context.WithTimeout(context.Background(), 5*time.Second)
			a.release(sctx)
			done()
			return nil, fmt.Errorf("app: init %s: %w", step.name, err)
		}
	}
	return a, nil
}

// onClose registers fn to run at shutdown. Closers run last-in first-out,
// so a resource closes before the ones it was built on.
func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) release(ctx context.Context) {
	for _, c := range slices.Backward(a.closers) {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}
	a.closers = nil
}
