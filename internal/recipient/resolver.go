package recipient

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/stock-alerts/internal/alert"
)

// FallbackLimit bounds the default recipient set when no admins exist, so a
// misconfigured user table can never trigger unbounded fan-out.
const FallbackLimit = 10

// Recipient is one resolved alert target.
type Recipient struct {
	ID    string
	Email string
}

// Resolver supplies the recipients for one transition. Resolution happens
// exactly once per dispatch, never per record, and must be safe to call
// concurrently. User and role data belong to the identity collaborator.
type Resolver interface {
	Resolve(ctx context.Context, event alert.TransitionEvent) ([]Recipient, error)
}

// PostgresResolver resolves admins from the shared users table, falling back
// to the first FallbackLimit users by id when no admins exist.
//
// The fallback is a documented placeholder; a production redesign would
// likely scope recipients to warehouse subscribers. Swapping the rule only
// touches this type.
type PostgresResolver struct {
	db *sql.DB
}

func NewPostgresResolver(db *sql.DB) *PostgresResolver {
	return &PostgresResolver{db: db}
}

func (r *PostgresResolver) Resolve(ctx context.Context, event alert.TransitionEvent) ([]Recipient, error) {
	recipients, err := r.query(ctx,
		`SELECT id, email FROM users WHERE role = 'admin' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("resolve admins: %w", err)
	}
	if len(recipients) > 0 {
		return recipients, nil
	}

	recipients, err = r.query(ctx,
		`SELECT id, email FROM users ORDER BY id LIMIT $1`, FallbackLimit)
	if err != nil {
		return nil, fmt.Errorf("resolve fallback recipients: %w", err)
	}
	return recipients, nil
}

func (r *PostgresResolver) query(ctx context.Context, q string, args ...any) ([]Recipient, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var rec Recipient
		var email sql.NullString
		if err := rows.Scan(&rec.ID, &email); err != nil {
			return nil, err
		}
		rec.Email = email.String
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// StaticResolver returns a fixed recipient set. Used in dev mode and tests.
type StaticResolver struct {
	Recipients []Recipient
}

func (r *StaticResolver) Resolve(ctx context.Context, event alert.TransitionEvent) ([]Recipient, error) {
	out := make([]Recipient, len(r.Recipients))
	copy(out, r.Recipients)
	if len(out) > FallbackLimit {
		out = out[:FallbackLimit]
	}
	return out, nil
}
