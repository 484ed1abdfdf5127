// Package store provides storage backends for LeadPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/PaintKaro/LeadPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetConversationState(chatID string) (*models.ConversationState, error) {
	if chatID == "" {
		return nil, models.ErrEmptyChatID
	}
	row := s.db.QueryRow(`SELECT lead_status, last_intent, lead_id FROM conversation_states WHERE chat_id = ?`, chatID)
	var state models.ConversationState
	var lastIntent, leadID sql.NullString
	if err := row.Scan(&state.LeadStatus, &lastIntent, &leadID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", chatID, err)
	}
	state.LastIntent = models.IntentStage(lastIntent.String)
	state.LeadID = leadID.String
	return &state, nil
}

func (s *SQLiteStore) SaveConversationState(chatID string, state models.ConversationState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO conversation_states (chat_id, lead_status, last_intent, lead_id, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		chatID, state.LeadStatus, nilIfEmpty(string(state.LastIntent)), nilIfEmpty(state.LeadID), time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to save conversation state for %s: %w", chatID, err)
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "chatID", chatID, "leadStatus", state.LeadStatus)
	return nil
}

func (s *SQLiteStore) DeleteConversationState(chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	_, err := s.db.Exec(`DELETE FROM conversation_states WHERE chat_id = ?`, chatID)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversationState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete conversation state for %s: %w", chatID, err)
	}
	return nil
}

func (s *SQLiteStore) GetStepFlowState(chatID string) (*models.StepFlowState, error) {
	if chatID == "" {
		return nil, models.ErrEmptyChatID
	}
	row := s.db.QueryRow(`SELECT step, answers, waiting_for_assign_confirm FROM step_flow_states WHERE chat_id = ?`, chatID)
	var state models.StepFlowState
	var answersJSON sql.NullString
	if err := row.Scan(&state.Step, &answersJSON, &state.WaitingForAssignConfirm); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Error("SQLiteStore GetStepFlowState failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to get step flow state for %s: %w", chatID, err)
	}
	answers, err := decodeAnswers(answersJSON.String)
	if err != nil {
		slog.Error("SQLiteStore GetStepFlowState decode failed", "error", err, "chatID", chatID)
		return nil, err
	}
	state.Answers = answers
	return &state, nil
}

func (s *SQLiteStore) SaveStepFlowState(chatID string, state models.StepFlowState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	answersJSON, err := encodeAnswers(state.Answers)
	if err != nil {
		slog.Error("SQLiteStore SaveStepFlowState encode failed", "error", err, "chatID", chatID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO step_flow_states (chat_id, step, answers, waiting_for_assign_confirm, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		chatID, state.Step, nilIfEmpty(answersJSON), state.WaitingForAssignConfirm, time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveStepFlowState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to save step flow state for %s: %w", chatID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteStepFlowState(chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	_, err := s.db.Exec(`DELETE FROM step_flow_states WHERE chat_id = ?`, chatID)
	if err != nil {
		slog.Error("SQLiteStore DeleteStepFlowState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete step flow state for %s: %w", chatID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveLead(lead models.Lead) error {
	if lead.ID == "" {
		return models.ErrEmptyLeadID
	}
	now := time.Now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO leads (id, contractor_id, chat_id, customer_name, customer_phone, location,
			job_type, interior_scope, exterior_scope, urgency, preferred_language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, nilIfEmpty(lead.ContractorID), lead.ChatID, nilIfEmpty(lead.CustomerName),
		nilIfEmpty(lead.CustomerPhone), nilIfEmpty(lead.Location), lead.JobType,
		nilIfNilBool(lead.InteriorScope), nilIfNilBool(lead.ExteriorScope), lead.Urgency,
		nilIfEmpty(lead.PreferredLanguage), lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveLead failed", "error", err, "leadID", lead.ID)
		return fmt.Errorf("failed to save lead %s: %w", lead.ID, err)
	}
	slog.Debug("SQLiteStore SaveLead succeeded", "leadID", lead.ID, "chatID", lead.ChatID)
	return nil
}

func (s *SQLiteStore) GetLead(id string) (*models.Lead, error) {
	if id == "" {
		return nil, models.ErrEmptyLeadID
	}
	row := s.db.QueryRow(`SELECT id, contractor_id, chat_id, customer_name, customer_phone, location,
		job_type, interior_scope, exterior_scope, urgency, preferred_language, created_at, updated_at
		FROM leads WHERE id = ?`, id)
	lead, err := scanLeadRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrLeadNotFound
		}
		slog.Error("SQLiteStore GetLead failed", "error", err, "leadID", id)
		return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
	}
	return &lead, nil
}

func (s *SQLiteStore) ListLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT id, contractor_id, chat_id, customer_name, customer_phone, location,
		job_type, interior_scope, exterior_scope, urgency, preferred_language, created_at, updated_at
		FROM leads ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			slog.Error("SQLiteStore ListLeads scan failed", "error", err)
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("SQLiteStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

func (s *SQLiteStore) SaveMeasurement(m models.Measurement) error {
	if m.LeadID == "" {
		return models.ErrEmptyLeadID
	}
	dataJSON, err := json.Marshal(m.Data)
	if err != nil {
		slog.Error("SQLiteStore SaveMeasurement marshal failed", "error", err, "leadID", m.LeadID)
		return fmt.Errorf("failed to encode measurement data: %w", err)
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	_, err = s.db.Exec(`
		INSERT INTO measurements (lead_id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (lead_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		m.LeadID, string(dataJSON), m.CreatedAt, now)
	if err != nil {
		slog.Error("SQLiteStore SaveMeasurement failed", "error", err, "leadID", m.LeadID)
		return fmt.Errorf("failed to save measurement for lead %s: %w", m.LeadID, err)
	}
	return nil
}

func (s *SQLiteStore) GetMeasurement(leadID string) (*models.Measurement, error) {
	if leadID == "" {
		return nil, models.ErrEmptyLeadID
	}
	row := s.db.QueryRow(`SELECT lead_id, data, created_at, updated_at FROM measurements WHERE lead_id = ?`, leadID)
	var m models.Measurement
	var dataJSON string
	if err := row.Scan(&m.LeadID, &dataJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Error("SQLiteStore GetMeasurement failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to get measurement for lead %s: %w", leadID, err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &m.Data); err != nil {
		slog.Error("SQLiteStore GetMeasurement unmarshal failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to decode measurement data: %w", err)
	}
	return &m, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
