package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// SQLiteObjectRepository хранит вырезанные объекты в таблице image_objects.
type SQLiteObjectRepository struct {
	db *DB
}

// NewSQLiteObjectRepository создаёт репозиторий поверх открытой базы.
func NewSQLiteObjectRepository(db *DB) *SQLiteObjectRepository {
	return &SQLiteObjectRepository{db: db}
}

// Save записывает объекты одной транзакцией, пропуская дубликаты
// (те же x, y, width, height и побайтно та же вырезка).
func (r *SQLiteObjectRepository) Save(ctx context.Context, objects []entity.StoredObject) (int, error) {
	if len(objects) == 0 {
		return 0, nil
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO image_objects (run_id, file, label, confidence, x, y, width, height, object_image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insert.Close()

	saved := 0
	for _, o := range objects {
		exists, err := hasObject(ctx, tx, o)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		if _, err := insert.ExecContext(ctx, o.RunID, o.File, o.Label, o.Confidence, o.X, o.Y, o.Width, o.Height, o.Image); err != nil {
			return 0, fmt.Errorf("failed to insert object: %w", err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return saved, nil
}

func hasObject(ctx context.Context, tx *sql.Tx, o entity.StoredObject) (bool, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT object_image FROM image_objects
		WHERE x = ? AND y = ? AND width = ? AND height = ?
	`, o.X, o.Y, o.Width, o.Height)
	if err != nil {
		return false, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return false, fmt.Errorf("failed to scan object: %w", err)
		}
		if bytes.Equal(blob, o.Image) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// List возвращает все объекты в порядке добавления.
func (r *SQLiteObjectRepository) List(ctx context.Context) ([]entity.StoredObject, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, run_id, file, label, confidence, x, y, width, height, object_image, created_at
		FROM image_objects ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var objects []entity.StoredObject
	for rows.Next() {
		var o entity.StoredObject
		if err := rows.Scan(&o.ID, &o.RunID, &o.File, &o.Label, &o.Confidence, &o.X, &o.Y, &o.Width, &o.Height, &o.Image, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		objects = append(objects, o)
	}

	return objects, rows.Err()
}

// Count число сохранённых объектов.
func (r *SQLiteObjectRepository) Count(ctx context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var n int
	if err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM image_objects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return n, nil
}

// Clear удаляет все объекты.
func (r *SQLiteObjectRepository) Clear(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM image_objects`); err != nil {
		return fmt.Errorf("failed to clear objects: %w", err)
	}
	return nil
}

var _ port.ObjectRepository = (*SQLiteObjectRepository)(nil)
