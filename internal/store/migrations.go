package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Detections table - one row per classified hand
		`CREATE TABLE IF NOT EXISTS detections (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			hand_index INTEGER NOT NULL,
			hand TEXT NOT NULL,
			gesture TEXT NOT NULL,
			confidence REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detections_request_id ON detections(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_created_at ON detections(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
