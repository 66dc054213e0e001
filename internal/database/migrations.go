package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

// Schema statements stay within the subset shared by Postgres, MySQL 8 and SQLite.
var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_chapters_and_members",
			Up: []string{
				`CREATE TABLE chapters (
					id VARCHAR(36) PRIMARY KEY,
					name VARCHAR(200) NOT NULL,
					parent_id VARCHAR(36) NULL,
					level VARCHAR(20) NOT NULL,
					created_at BIGINT NOT NULL
				)`,
				`CREATE INDEX idx_chapters_parent ON chapters (parent_id)`,
				`CREATE TABLE members (
					id VARCHAR(36) PRIMARY KEY,
					chapter_id VARCHAR(36) NULL,
					first_name VARCHAR(100) NOT NULL,
					last_name VARCHAR(100) NOT NULL,
					email VARCHAR(320) NOT NULL,
					email_opt_in BOOLEAN NOT NULL DEFAULT TRUE,
					created_at BIGINT NOT NULL
				)`,
				`CREATE INDEX idx_members_chapter ON members (chapter_id)`,
				`CREATE TABLE team_members (
					id VARCHAR(36) PRIMARY KEY,
					user_id VARCHAR(36) NOT NULL UNIQUE,
					member_id VARCHAR(36) NOT NULL,
					chapter_id VARCHAR(36) NULL,
					roles TEXT NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at BIGINT NOT NULL,
					FOREIGN KEY (member_id) REFERENCES members (id)
				)`,
			},
			Down: []string{
				`DROP TABLE team_members`,
				`DROP TABLE members`,
				`DROP TABLE chapters`,
			},
		},
		{
			Id: "0002_messaging",
			Up: []string{
				`CREATE TABLE channels (
					id VARCHAR(36) PRIMARY KEY,
					name VARCHAR(80) NOT NULL,
					description TEXT NULL,
					chapter_id VARCHAR(36) NOT NULL,
					is_archived BOOLEAN NOT NULL DEFAULT FALSE,
					created_by VARCHAR(36) NOT NULL,
					created_at BIGINT NOT NULL,
					updated_at BIGINT NOT NULL
				)`,
				`CREATE INDEX idx_channels_chapter ON channels (chapter_id)`,
				`CREATE TABLE channel_members (
					id VARCHAR(36) PRIMARY KEY,
					channel_id VARCHAR(36) NOT NULL,
					team_member_id VARCHAR(36) NOT NULL,
					role VARCHAR(10) NOT NULL,
					joined_at BIGINT NOT NULL,
					last_read_at BIGINT NULL,
					notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
					UNIQUE (channel_id, team_member_id),
					FOREIGN KEY (channel_id) REFERENCES channels (id)
				)`,
				`CREATE TABLE messages (
					id VARCHAR(36) PRIMARY KEY,
					channel_id VARCHAR(36) NOT NULL,
					sender_id VARCHAR(36) NOT NULL,
					content TEXT NULL,
					is_edited BOOLEAN NOT NULL DEFAULT FALSE,
					is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
					created_at BIGINT NOT NULL,
					updated_at BIGINT NOT NULL,
					FOREIGN KEY (channel_id) REFERENCES channels (id)
				)`,
				`CREATE INDEX idx_messages_channel_created ON messages (channel_id, created_at)`,
				`CREATE TABLE push_subscriptions (
					id VARCHAR(36) PRIMARY KEY,
					team_member_id VARCHAR(36) NOT NULL,
					endpoint VARCHAR(500) NOT NULL,
					p256dh VARCHAR(255) NOT NULL,
					auth VARCHAR(255) NOT NULL,
					created_at BIGINT NOT NULL,
					updated_at BIGINT NOT NULL,
					UNIQUE (team_member_id, endpoint)
				)`,
			},
			Down: []string{
				`DROP TABLE push_subscriptions`,
				`DROP TABLE messages`,
				`DROP TABLE channel_members`,
				`DROP TABLE channels`,
			},
		},
	},
}

// dialects maps driver names to sql-migrate dialect names
var dialects = map[string]string{
	"postgres": "postgres",
	"mysql":    "mysql",
	"sqlite":   "sqlite3",
}

// Migrate applies every pending migration and returns how many ran
func Migrate(db *sqlx.DB) (int, error) {
	dialect, ok := dialects[db.DriverName()]
	if !ok {
		return 0, fmt.Errorf("migrate: no dialect for driver %q", db.DriverName())
	}
	n, err := migrate.Exec(db.DB, dialect, migrations, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("migrate: %w", err)
	}
	return n, nil
}
