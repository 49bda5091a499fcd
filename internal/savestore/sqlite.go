package savestore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tatianab/franco-game/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path and applies the migrations
// in name order.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps upserts ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	for _, entry := range entries {
		name := "migrations/" + entry.Name()
		migration, err := migrations.ReadFile(name)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Save(ctx context.Context, userID string, snap models.Snapshot) error {
	inventory := snap.Inventory
	if inventory == nil {
		inventory = []string{}
	}
	encoded, err := json.Marshal(inventory)
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	q := `
	INSERT INTO saves (user_id, current_room, inventory, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		current_room = excluded.current_room,
		inventory = excluded.inventory,
		updated_at = excluded.updated_at;
	`
	if _, err := r.db.ExecContext(ctx, q, userID, snap.CurrentRoom, string(encoded), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert save: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, userID string) (*models.Snapshot, error) {
	q := `
	SELECT current_room, inventory FROM saves WHERE user_id = ?;
	`
	var room, inventory string
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&room, &inventory); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan save: %w", err)
	}

	snap := &models.Snapshot{CurrentRoom: room}
	if err := json.Unmarshal([]byte(inventory), &snap.Inventory); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	if snap.Inventory == nil {
		snap.Inventory = []string{}
	}
	return snap, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	return nil
}
