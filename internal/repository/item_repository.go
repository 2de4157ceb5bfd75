package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/daruji/giveaway/internal/model"
)

// ItemRepo provides persistence for give-away items. It is the single
// source of truth: every read returns the current database state and
// every mutation is a single-row atomic write. All timestamp fields are
// assigned by the database and stored in UTC.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

const itemColumns = `id, title, description, image, owner, created_at, reserved, reserved_by, reserved_at`

// Create inserts a new listing in the available state and reads the row
// back so the caller sees the database-assigned id and created_at.
func (r *ItemRepo) Create(ctx context.Context, draft model.ItemDraft, owner string) (*model.Item, error) {
	const q = `INSERT INTO items (title, description, image, owner) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, draft.Title, draft.Description, draft.Image, owner)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns a single item. When no item with the specified id
// exists, ErrItemNotFound is returned.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (*model.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	it, err := scanItem(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return it, nil
}

// Snapshot returns the complete item set ordered by creation time
// descending (newest first). Ties on created_at break on id descending
// so the order is deterministic. When no items exist, an empty slice is
// returned.
func (r *ItemRepo) Snapshot(ctx context.Context) ([]model.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Reserve marks an available item as reserved by the given identity,
// with the reservation timestamp assigned by the database. The update
// is guarded on reserved = 0 so two racing reservers cannot both
// succeed: whichever reaches the row second touches nothing and gets
// ErrAlreadyReserved, or ErrItemNotFound when the row is gone. On
// success the committed row is read back in the same transaction, so
// the caller always sees the state its own write produced even when a
// delete lands immediately after.
func (r *ItemRepo) Reserve(ctx context.Context, id uint64, reservedBy string) (*model.Item, error) {
	const q = `UPDATE items SET reserved = 1, reserved_by = ?, reserved_at = NOW(6) WHERE id = ? AND reserved = 0`
	return r.transition(ctx, id, q, ErrAlreadyReserved, reservedBy, id)
}

// ClearReservation returns a reserved item to the available state,
// clearing the reserver and timestamp together so the three fields
// never disagree. Guarded on reserved = 1; clearing an item that holds
// no reservation returns ErrNotReserved. Like Reserve, the updated row
// is read back inside the transaction.
func (r *ItemRepo) ClearReservation(ctx context.Context, id uint64) (*model.Item, error) {
	const q = `UPDATE items SET reserved = 0, reserved_by = NULL, reserved_at = NULL WHERE id = ? AND reserved = 1`
	return r.transition(ctx, id, q, ErrNotReserved, id)
}

// transition runs a state-guarded single-row update and reads the row
// back in the same transaction. Zero affected rows means the guard
// refused: the row is re-read once to tell a lost race (conflict) apart
// from a deleted item (ErrItemNotFound).
func (r *ItemRepo) transition(ctx context.Context, id uint64, query string, conflict error, args ...interface{}) (*model.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	const sel = `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	if n == 0 {
		if _, err := scanItem(tx.QueryRowContext(ctx, sel, id)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrItemNotFound
			}
			return nil, err
		}
		return nil, conflict
	}
	it, err := scanItem(tx.QueryRowContext(ctx, sel, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return it, nil
}

// Delete removes the listing entirely. Deletion is terminal: any
// reservation recorded on the row disappears with it.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM items WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var it model.Item
	var reservedBy sql.NullString
	var reservedAt sql.NullTime
	if err := row.Scan(
		&it.ID, &it.Title, &it.Description, &it.Image, &it.Owner,
		&it.CreatedAt, &it.Reserved, &reservedBy, &reservedAt,
	); err != nil {
		return nil, err
	}
	if reservedBy.Valid {
		it.ReservedBy = reservedBy.String
	}
	if reservedAt.Valid {
		t := reservedAt.Time.UTC()
		it.ReservedAt = &t
	}
	return &it, nil
}
