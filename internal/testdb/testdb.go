// Package testdb opens throwaway sqlite databases carrying the loyalty schema
// for repository and service tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// schema mirrors pkg/migrate/migrations without the Postgres-only pieces
// (gen_random_uuid defaults, triggers, jsonb).
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE loyalty_programs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		public_code TEXT NOT NULL UNIQUE,
		business_name TEXT NOT NULL,
		business_category TEXT NOT NULL,
		name TEXT NOT NULL,
		required_stamps INTEGER NOT NULL CHECK (required_stamps > 0),
		reward_description TEXT NOT NULL,
		reward_value TEXT,
		primary_color TEXT NOT NULL,
		secondary_color TEXT NOT NULL,
		text_color TEXT NOT NULL,
		seal_shape TEXT NOT NULL,
		background_pattern TEXT NOT NULL,
		logo_url TEXT,
		welcome_message TEXT,
		terms TEXT,
		qr_code_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE customer_ledgers (
		id TEXT PRIMARY KEY,
		program_id TEXT NOT NULL REFERENCES loyalty_programs(id),
		customer_id TEXT NOT NULL REFERENCES users(id),
		card_code TEXT NOT NULL UNIQUE,
		current_stamps INTEGER NOT NULL DEFAULT 0 CHECK (current_stamps >= 0),
		total_rewards_earned INTEGER NOT NULL DEFAULT 0 CHECK (total_rewards_earned >= 0),
		is_active BOOLEAN NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 0,
		joined_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (program_id, customer_id)
	)`,
	`CREATE TABLE seal_transactions (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL REFERENCES customer_ledgers(id),
		program_id TEXT NOT NULL REFERENCES loyalty_programs(id),
		actor_id TEXT NOT NULL,
		ledger_version INTEGER NOT NULL,
		kind TEXT NOT NULL,
		seals_given INTEGER NOT NULL,
		stamps_after INTEGER NOT NULL,
		rewards_after INTEGER NOT NULL,
		notes TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE (ledger_id, ledger_version)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns an isolated in-memory database with the schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes
	// writers; callers must not query outside an open transaction.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// MustCreateUser inserts an active user with the given role.
func MustCreateUser(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("sc_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateProgram inserts an active program owned by ownerID.
func MustCreateProgram(t testing.TB, conn *gorm.DB, ownerID uuid.UUID, requiredStamps int) *models.LoyaltyProgram {
	t.Helper()
	now := time.Now().UTC()
	program := &models.LoyaltyProgram{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		PublicCode:        uuid.NewString()[:8],
		BusinessName:      "Corner Cafe",
		BusinessCategory:  enums.BusinessCategoryCafe,
		Name:              "Coffee Club",
		RequiredStamps:    requiredStamps,
		RewardDescription: "Free coffee",
		PrimaryColor:      "#1A237E",
		SecondaryColor:    "#FFEB3B",
		TextColor:         "#FFFFFF",
		SealShape:         enums.SealShapeCup,
		BackgroundPattern: enums.BackgroundPatternNone,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := conn.Create(program).Error; err != nil {
		t.Fatalf("create program: %v", err)
	}
	return program
}
