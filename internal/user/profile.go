package user

import (
	"context"

	"github.com/feliperosas/taskmatch/internal/db"
)

// EnsureProfile makes sure a profile row exists for the given identity before
// a task or proposal references it. Newly created rows default to CLIENT; an
// existing row is left untouched.
func EnsureProfile(ctx context.Context, userID string) error {
	_, err := db.Conn.Exec(ctx, `
        INSERT INTO profiles (id, name, role)
        VALUES ($1, '', 'CLIENT')
        ON CONFLICT (id) DO NOTHING`, userID)
	return err
}

// UpsertFromIdentity applies a user.created/user.updated event from the
// identity provider. Create sets the role from event metadata; update only
// touches display fields, never role.
func UpsertFromIdentity(ctx context.Context, userID, name, email, avatarURL, role string) error {
	if role != RoleProvider {
		role = RoleClient
	}
	_, err := db.Conn.Exec(ctx, `
        INSERT INTO profiles (id, name, email, avatar_url, role)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            email = EXCLUDED.email,
            avatar_url = EXCLUDED.avatar_url,
            updated_at = NOW()`,
		userID, name, email, avatarURL, role)
	return err
}
