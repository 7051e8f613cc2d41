package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and bootstraps the schema
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	// Ensure core marketplace tables exist
	ensureProfilesTable()
	ensureTasksTable()
	ensureProposalsTable()
	ensureMatchesTable()
	ensureMessagesTable()
	ensureReviewsTable()

	// Ensure the insert trigger feeding the realtime message channel
	ensureMessageFeedTrigger()
}

// ensureProfilesTable creates profiles if missing. Profile ids come from the
// identity provider, so the column is TEXT rather than a generated UUID.
func ensureProfilesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS profiles (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'CLIENT' CHECK (role IN ('CLIENT','PROVIDER')),
            bio TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Printf("failed to create profiles table: %v", err)
	}
}

// ensureTasksTable creates tasks if missing. CANCELLED is allowed by the
// constraint but no handler produces it.
func ensureTasksTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS tasks (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            client_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            category TEXT NOT NULL,
            location TEXT NOT NULL DEFAULT '',
            image_urls TEXT[] NOT NULL DEFAULT '{}',
            status TEXT NOT NULL DEFAULT 'OPEN'
                CHECK (status IN ('OPEN','IN_PROGRESS','COMPLETED','CANCELLED')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_tasks_client ON tasks(client_id);
        CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at);
    `)
	if err != nil {
		log.Printf("failed to create tasks table: %v", err)
	}
}

func ensureProposalsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS proposals (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            provider_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
            description TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (status IN ('PENDING','ACCEPTED','REJECTED')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_proposals_task ON proposals(task_id);
        CREATE INDEX IF NOT EXISTS idx_proposals_provider ON proposals(provider_id);
    `)
	if err != nil {
		log.Printf("failed to create proposals table: %v", err)
	}
}

// ensureMatchesTable creates matches if missing. The UNIQUE constraint on
// task_id is what ultimately enforces one match per task.
func ensureMatchesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS matches (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            task_id UUID NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
            client_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            provider_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_matches_client ON matches(client_id);
        CREATE INDEX IF NOT EXISTS idx_matches_provider ON matches(provider_id);
    `)
	if err != nil {
		log.Printf("failed to create matches table: %v", err)
	}
}

func ensureMessagesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            client_token TEXT NOT NULL DEFAULT '',
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_messages_match_created ON messages(match_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_messages_match_unread ON messages(match_id) WHERE is_read = FALSE;
    `)
	if err != nil {
		log.Printf("failed to create messages table: %v", err)
	}
}

// ensureReviewsTable creates reviews if missing. UNIQUE task_id keeps reviews
// one-per-completed-task.
func ensureReviewsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS reviews (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            task_id UUID NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
            reviewer_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            reviewed_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_reviews_reviewed ON reviews(reviewed_id);
    `)
	if err != nil {
		log.Printf("failed to create reviews table: %v", err)
	}
}

// ensureMessageFeedTrigger installs the NOTIFY trigger behind the realtime
// message feed. row_to_json keeps the payload shape identical to the row.
func ensureMessageFeedTrigger() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE OR REPLACE FUNCTION notify_message_insert() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('taskmatch_messages', row_to_json(NEW)::text);
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql;
    `)
	if err != nil {
		log.Printf("failed to create message feed function: %v", err)
		return
	}
	_, err = Conn.Exec(ctx, `
        DROP TRIGGER IF EXISTS messages_notify_insert ON messages;
        CREATE TRIGGER messages_notify_insert
            AFTER INSERT ON messages
            FOR EACH ROW EXECUTE FUNCTION notify_message_insert();
    `)
	if err != nil {
		log.Printf("failed to create message feed trigger: %v", err)
	}
}
