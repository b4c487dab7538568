package app

import (
	"fmt"

	"github.com/coincraze/authd/internal/identity"
	"github.com/coincraze/authd/internal/notification"
	"github.com/redis/go-redis/v9"
)

func (a *App) initModules() error {
	// a nil *redis.Client must reach the modules as a nil interface
	var cache redis.UniversalClient
	if a.cacheConn != nil {
		cache = a.cacheConn
	}

	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			CacheConn:  cache,
			Goroutine:  a.goroutine,
			Router:     a.router,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			HMAC:       a.hmac,
			Password:   a.password,
			Clock:      a.clock,
			Validator:  a.validator,
			JWT:        a.jwt,
		}); err != nil {
			return fmt.Errorf("identity: %w", err)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			CacheConn:  cache,
			Authz:      a.authz,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Router:     a.router,
			Mail:       a.mail,
		}); err != nil {
			return fmt.Errorf("notification: %w", err)
		}
	}
	return nil
}
