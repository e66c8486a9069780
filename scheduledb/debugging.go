package scheduledb

import (
	"fmt"

	"zetlive.dev/internal/logging"
)

// TableCounts returns the row count of every cache table, for the debug
// page and tests.
func (s *Store) TableCounts() (map[string]int, error) {
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, s.logger, "database_rows")

	known := map[string]bool{
		"meta":       true,
		"routes":     true,
		"stops":      true,
		"trips":      true,
		"trip_stops": true,
		"shapes":     true,
	}

	counts := make(map[string]int)
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, table := range tables {
		if !known[table] {
			continue
		}
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, err
		}
		counts[table] = count
	}
	return counts, nil
}
