package syncstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/common"
)

const (
	keyKnownIDs    = "known_ids"
	keyUnreadCount = "unread_count"
	keyLastSync    = "last_sync"
	keySession     = "session"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading sync_state[%s]: %v", common.ErrStorage, key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: writing sync_state[%s]: %v", common.ErrStorage, key, err)
	}
	return nil
}

func (r *SQLiteRepository) KnownIDs(ctx context.Context) (map[string]struct{}, error) {
	value, err := r.get(ctx, keyKnownIDs)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	if len(value) == 0 {
		return ids, nil
	}
	var list []string
	if err := json.Unmarshal(value, &list); err != nil {
		return nil, fmt.Errorf("%w: decoding known ids: %v", common.ErrStorage, err)
	}
	for _, id := range list {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (r *SQLiteRepository) SetKnownIDs(ctx context.Context, ids map[string]struct{}) error {
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)
	value, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encoding known ids: %v", common.ErrStorage, err)
	}
	return r.set(ctx, keyKnownIDs, value)
}

func (r *SQLiteRepository) UnreadCount(ctx context.Context) (int, error) {
	value, err := r.get(ctx, keyUnreadCount)
	if err != nil {
		return 0, err
	}
	if len(value) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(string(value))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func (r *SQLiteRepository) SetUnreadCount(ctx context.Context, n int) error {
	if n < 0 {
		n = 0
	}
	return r.set(ctx, keyUnreadCount, []byte(strconv.Itoa(n)))
}

func (r *SQLiteRepository) LastSync(ctx context.Context) (time.Time, error) {
	value, err := r.get(ctx, keyLastSync)
	if err != nil || len(value) == 0 {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(value))
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

func (r *SQLiteRepository) SetLastSync(ctx context.Context, t time.Time) error {
	return r.set(ctx, keyLastSync, []byte(t.Format(time.RFC3339)))
}

func (r *SQLiteRepository) Session(ctx context.Context) (*models.Technician, error) {
	value, err := r.get(ctx, keySession)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, common.ErrNotLoggedIn
	}
	var t models.Technician
	if err := json.Unmarshal(value, &t); err != nil {
		return nil, fmt.Errorf("%w: decoding session: %v", common.ErrStorage, err)
	}
	return &t, nil
}

func (r *SQLiteRepository) SetSession(ctx context.Context, t *models.Technician) error {
	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: encoding session: %v", common.ErrStorage, err)
	}
	return r.set(ctx, keySession, value)
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_state`)
	if err != nil {
		return fmt.Errorf("%w: clearing sync_state: %v", common.ErrStorage, err)
	}
	return nil
}
