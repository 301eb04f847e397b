package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Dialect selects SQL flavour differences between the supported drivers
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var placeholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $N placeholders for drivers that only take ?
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

// ForUpdate returns the row-lock suffix for locked reads
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// schema is written for Postgres; sqliteTypes rewrites the few types that differ.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                       VARCHAR(64) PRIMARY KEY,
		email                    VARCHAR(255) NOT NULL DEFAULT '',
		status                   VARCHAR(16) NOT NULL DEFAULT 'pending',
		is_admin                 BOOLEAN NOT NULL DEFAULT FALSE,
		balance                  NUMERIC(14,2) NOT NULL DEFAULT 0,
		daily_reward             NUMERIC(14,2) NOT NULL DEFAULT 0,
		destination_amount       NUMERIC(14,2) NOT NULL DEFAULT 0,
		ongoing_milestone        INTEGER NOT NULL DEFAULT 0,
		total_ads_completed      INTEGER NOT NULL DEFAULT 0,
		points                   INTEGER NOT NULL DEFAULT 0,
		pending_deposit_amount   NUMERIC(14,2) NOT NULL DEFAULT 0,
		restriction_ads_limit    INTEGER,
		restriction_deposit      NUMERIC(14,2),
		restriction_commission   NUMERIC(14,2),
		restricted_ads_completed INTEGER NOT NULL DEFAULT 0,
		created_at               TIMESTAMPTZ NOT NULL,
		updated_at               TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ads (
		id          SERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		target_url  TEXT NOT NULL DEFAULT '',
		price       NUMERIC(10,2) NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ad_clicks (
		id            SERIAL PRIMARY KEY,
		user_id       VARCHAR(64) NOT NULL REFERENCES users(id),
		ad_id         INTEGER NOT NULL REFERENCES ads(id),
		earned_amount NUMERIC(14,2) NOT NULL,
		mode          VARCHAR(16) NOT NULL DEFAULT 'normal',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ad_clicks_user ON ad_clicks(user_id)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id              SERIAL PRIMARY KEY,
		user_id         VARCHAR(64) NOT NULL REFERENCES users(id),
		amount          NUMERIC(14,2) NOT NULL,
		method          VARCHAR(32) NOT NULL,
		account_details TEXT NOT NULL,
		status          VARCHAR(16) NOT NULL DEFAULT 'pending',
		reason          TEXT,
		created_at      TIMESTAMPTZ NOT NULL,
		processed_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id          SERIAL PRIMARY KEY,
		user_id     VARCHAR(64) NOT NULL REFERENCES users(id),
		amount      NUMERIC(14,2) NOT NULL,
		type        VARCHAR(16) NOT NULL DEFAULT 'manual_add',
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_user ON deposits(user_id)`,
}

// SQLite stores money as TEXT so decimals round-trip without float conversion.
var sqliteTypes = strings.NewReplacer(
	"SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
	"NUMERIC(14,2)", "TEXT",
	"NUMERIC(10,2)", "TEXT",
	"TIMESTAMPTZ", "DATETIME",
	"DEFAULT FALSE", "DEFAULT 0",
	"DEFAULT TRUE", "DEFAULT 1",
)

// Statements returns the schema DDL for a dialect
func (d Dialect) Statements() []string {
	stmts := make([]string, len(schema))
	for i, stmt := range schema {
		if d == SQLite {
			stmt = sqliteTypes.Replace(stmt)
		}
		stmts[i] = stmt
	}
	return stmts
}

// Migrate creates the ledger tables if they do not exist
func Migrate(db *sql.DB, d Dialect) error {
	for i, stmt := range d.Statements() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
