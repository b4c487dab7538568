package db

import (
	"context"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, account_id, title, message, currency, amount::float8, is_read, created_at, updated_at`

func scanNotification(row pgx.Row) (entity.Notification, error) {
	var n entity.Notification
	err := row.Scan(
		&n.ID,
		&n.AccountID,
		&n.Title,
		&n.Message,
		&n.Currency,
		&n.Amount,
		&n.Read,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

func (s *DB) CreateNotification(ctx context.Context, n entity.Notification) (err error) {
	ctx, span := s.startSpan(ctx, "CreateNotification")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO notifications (id, account_id, title, message, currency, amount, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.AccountID, n.Title, n.Message, n.Currency, n.Amount, n.Read, n.CreatedAt, n.UpdatedAt,
	)
	err = s.mapError(err)
	return err
}

// ListNotifications returns the newest entries first. A nil read selects every entry.
func (s *DB) ListNotifications(ctx context.Context, accountID int64, read *bool, limit, offset int) (_ []entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "ListNotifications")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		WHERE account_id = $1 AND ($2::boolean IS NULL OR is_read = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		accountID, read, limit, offset,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

// CountNotifications counts every entry of the account; Recent counts those created at or after since.
func (s *DB) CountNotifications(ctx context.Context, accountID int64, since time.Time) (_ *entity.Counts, err error) {
	ctx, span := s.startSpan(ctx, "CountNotifications")
	defer func() { s.endSpan(span, err) }()

	var c entity.Counts
	err = s.conn.QueryRow(ctx,
		`SELECT count(*),
			count(*) FILTER (WHERE NOT is_read),
			count(*) FILTER (WHERE is_read),
			count(*) FILTER (WHERE created_at >= $2)
		FROM notifications WHERE account_id = $1`,
		accountID, since,
	).Scan(&c.Total, &c.Unread, &c.Read, &c.Recent)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &c, nil
}

func (s *DB) GetNotification(ctx context.Context, accountID, id int64) (_ *entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "GetNotification")
	defer func() { s.endSpan(span, err) }()

	n, err := scanNotification(s.conn.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 AND account_id = $2`,
		id, accountID,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &n, nil
}

func (s *DB) SetNotificationRead(ctx context.Context, accountID, id int64, read bool, at time.Time) (_ *entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "SetNotificationRead")
	defer func() { s.endSpan(span, err) }()

	n, err := scanNotification(s.conn.QueryRow(ctx,
		`UPDATE notifications SET is_read = $3, updated_at = $4
		WHERE id = $1 AND account_id = $2
		RETURNING `+notificationColumns,
		id, accountID, read, at,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &n, nil
}

// SetAllNotificationsRead flips every entry not already in the wanted state and returns how many changed.
func (s *DB) SetAllNotificationsRead(ctx context.Context, accountID int64, read bool, at time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "SetAllNotificationsRead")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE notifications SET is_read = $2, updated_at = $3
		WHERE account_id = $1 AND is_read <> $2`,
		accountID, read, at,
	)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

// DeleteNotifications removes the account's entries, only the read ones when onlyRead is set.
func (s *DB) DeleteNotifications(ctx context.Context, accountID int64, onlyRead bool) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteNotifications")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`DELETE FROM notifications WHERE account_id = $1 AND (NOT $2 OR is_read)`,
		accountID, onlyRead,
	)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func (s *DB) DeleteNotification(ctx context.Context, accountID, id int64) (_ *entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "DeleteNotification")
	defer func() { s.endSpan(span, err) }()

	n, err := scanNotification(s.conn.QueryRow(ctx,
		`DELETE FROM notifications WHERE id = $1 AND account_id = $2 RETURNING `+notificationColumns,
		id, accountID,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &n, nil
}
