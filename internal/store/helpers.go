package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

// Opts holds configuration options for SQL-backed stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for SQL-backed stores.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for PostgreSQL-style DSNs and "sqlite3"
// otherwise. A plain file path is treated as SQLite.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nilIfNilBool passes through a *bool for nullable boolean columns.
func nilIfNilBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

// scanLead scans a Lead from sql.Rows.
func scanLead(rows *sql.Rows) (models.Lead, error) {
	var l models.Lead
	var contractorID, customerName, customerPhone, location, preferredLanguage sql.NullString
	var interiorScope, exteriorScope sql.NullBool
	err := rows.Scan(
		&l.ID, &contractorID, &l.ChatID, &customerName, &customerPhone, &location,
		&l.JobType, &interiorScope, &exteriorScope, &l.Urgency, &preferredLanguage,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return l, fmt.Errorf("scan lead failed: %w", err)
	}
	l.ContractorID = contractorID.String
	l.CustomerName = customerName.String
	l.CustomerPhone = customerPhone.String
	l.Location = location.String
	l.PreferredLanguage = preferredLanguage.String
	if interiorScope.Valid {
		l.InteriorScope = &interiorScope.Bool
	}
	if exteriorScope.Valid {
		l.ExteriorScope = &exteriorScope.Bool
	}
	return l, nil
}

// scanLeadRow scans a Lead from a single sql.Row.
func scanLeadRow(row *sql.Row) (models.Lead, error) {
	var l models.Lead
	var contractorID, customerName, customerPhone, location, preferredLanguage sql.NullString
	var interiorScope, exteriorScope sql.NullBool
	err := row.Scan(
		&l.ID, &contractorID, &l.ChatID, &customerName, &customerPhone, &location,
		&l.JobType, &interiorScope, &exteriorScope, &l.Urgency, &preferredLanguage,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return l, err
	}
	l.ContractorID = contractorID.String
	l.CustomerName = customerName.String
	l.CustomerPhone = customerPhone.String
	l.Location = location.String
	l.PreferredLanguage = preferredLanguage.String
	if interiorScope.Valid {
		l.InteriorScope = &interiorScope.Bool
	}
	if exteriorScope.Valid {
		l.ExteriorScope = &exteriorScope.Bool
	}
	return l, nil
}

// encodeAnswers serializes step-flow answers for a TEXT column.
func encodeAnswers(answers map[string]string) (string, error) {
	if len(answers) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("failed to encode step flow answers: %w", err)
	}
	return string(raw), nil
}

// decodeAnswers deserializes step-flow answers from a TEXT column.
func decodeAnswers(raw string) (map[string]string, error) {
	if raw == "" {
		return make(map[string]string), nil
	}
	var answers map[string]string
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("failed to decode step flow answers: %w", err)
	}
	return answers, nil
}
