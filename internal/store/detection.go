package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit is used by List when the limit is not positive.
const DefaultListLimit = 100

// Detection is one classified hand recorded in the history.
type Detection struct {
	ID         string
	RequestID  string
	HandIndex  int
	Hand       string
	Gesture    string
	Confidence float64
	CreatedAt  time.Time
}

// DetectionRepository provides access to recorded detections.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// Create inserts the detections of one request in a single transaction.
// Every detection gets the same CreatedAt.
func (r *DetectionRepository) Create(detections []*Detection) error {
	if len(detections) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO detections (id, request_id, hand_index, hand, gesture, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, d := range detections {
		d.CreatedAt = now
		if _, err := stmt.Exec(d.ID, d.RequestID, d.HandIndex, d.Hand, d.Gesture, d.Confidence, d.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a detection by its ID.
func (r *DetectionRepository) GetByID(id string) (*Detection, error) {
	d := &Detection{}
	err := r.db.QueryRow(
		`SELECT id, request_id, hand_index, hand, gesture, confidence, created_at
		 FROM detections WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.RequestID, &d.HandIndex, &d.Hand, &d.Gesture, &d.Confidence, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByRequestID retrieves the detections of one request in hand order.
func (r *DetectionRepository) GetByRequestID(requestID string) ([]*Detection, error) {
	return r.query(
		`SELECT id, request_id, hand_index, hand, gesture, confidence, created_at
		 FROM detections WHERE request_id = ? ORDER BY hand_index`,
		requestID,
	)
}

// List retrieves the most recent detections, newest request first.
func (r *DetectionRepository) List(limit int) ([]*Detection, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.query(
		`SELECT id, request_id, hand_index, hand, gesture, confidence, created_at
		 FROM detections ORDER BY created_at DESC, request_id, hand_index LIMIT ?`,
		limit,
	)
}

// CountByGesture returns how many detections were recorded for each gesture label.
func (r *DetectionRepository) CountByGesture() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT gesture, COUNT(*) FROM detections GROUP BY gesture`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var gesture string
		var n int
		if err := rows.Scan(&gesture, &n); err != nil {
			return nil, err
		}
		counts[gesture] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteBefore removes detections recorded before t and reports how many were removed.
func (r *DetectionRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM detections WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *DetectionRepository) query(query string, args ...any) ([]*Detection, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []*Detection
	for rows.Next() {
		d := &Detection{}
		if err := rows.Scan(&d.ID, &d.RequestID, &d.HandIndex, &d.Hand, &d.Gesture, &d.Confidence, &d.CreatedAt); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}
