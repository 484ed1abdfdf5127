// Package store provides storage backends for LeadPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/PaintKaro/LeadPipe/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetConversationState(chatID string) (*models.ConversationState, error) {
	if chatID == "" {
		return nil, models.ErrEmptyChatID
	}
	row := s.db.QueryRow(`SELECT lead_status, last_intent, lead_id FROM conversation_states WHERE chat_id = $1`, chatID)
	var state models.ConversationState
	var lastIntent, leadID sql.NullString
	if err := row.Scan(&state.LeadStatus, &lastIntent, &leadID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Error("PostgresStore GetConversationState failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", chatID, err)
	}
	state.LastIntent = models.IntentStage(lastIntent.String)
	state.LeadID = leadID.String
	return &state, nil
}

func (s *PostgresStore) SaveConversationState(chatID string, state models.ConversationState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	_, err := s.db.Exec(`
		INSERT INTO conversation_states (chat_id, lead_status, last_intent, lead_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			lead_status = EXCLUDED.lead_status,
			last_intent = EXCLUDED.last_intent,
			lead_id = EXCLUDED.lead_id,
			updated_at = EXCLUDED.updated_at`,
		chatID, state.LeadStatus, nilIfEmpty(string(state.LastIntent)), nilIfEmpty(state.LeadID), time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to save conversation state for %s: %w", chatID, err)
	}
	slog.Debug("PostgresStore SaveConversationState succeeded", "chatID", chatID, "leadStatus", state.LeadStatus)
	return nil
}

func (s *PostgresStore) DeleteConversationState(chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	_, err := s.db.Exec(`DELETE FROM conversation_states WHERE chat_id = $1`, chatID)
	if err != nil {
		slog.Error("PostgresStore DeleteConversationState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete conversation state for %s: %w", chatID, err)
	}
	return nil
}

func (s *PostgresStore) GetStepFlowState(chatID string) (*models.StepFlowState, error) {
	if chatID == "" {
		return nil, models.ErrEmptyChatID
	}
	row := s.db.QueryRow(`SELECT step, answers, waiting_for_assign_confirm FROM step_flow_states WHERE chat_id = $1`, chatID)
	var state models.StepFlowState
	var answersJSON sql.NullString
	if err := row.Scan(&state.Step, &answersJSON, &state.WaitingForAssignConfirm); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Error("PostgresStore GetStepFlowState failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to get step flow state for %s: %w", chatID, err)
	}
	answers, err := decodeAnswers(answersJSON.String)
	if err != nil {
		slog.Error("PostgresStore GetStepFlowState decode failed", "error", err, "chatID", chatID)
		return nil, err
	}
	state.Answers = answers
	return &state, nil
}

func (s *PostgresStore) SaveStepFlowState(chatID string, state models.StepFlowState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	answersJSON, err := encodeAnswers(state.Answers)
	if err != nil {
		slog.Error("PostgresStore SaveStepFlowState encode failed", "error", err, "chatID", chatID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO step_flow_states (chat_id, step, answers, waiting_for_assign_confirm, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			step = EXCLUDED.step,
			answers = EXCLUDED.answers,
			waiting_for_assign_confirm = EXCLUDED.waiting_for_assign_confirm,
			updated_at = EXCLUDED.updated_at`,
		chatID, state.Step, nilIfEmpty(answersJSON), state.WaitingForAssignConfirm, time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveStepFlowState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to save step flow state for %s: %w", chatID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteStepFlowState(chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	_, err := s.db.Exec(`DELETE FROM step_flow_states WHERE chat_id = $1`, chatID)
	if err != nil {
		slog.Error("PostgresStore DeleteStepFlowState failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete step flow state for %s: %w", chatID, err)
	}
	return nil
}

func (s *PostgresStore) SaveLead(lead models.Lead) error {
	if lead.ID == "" {
		return models.ErrEmptyLeadID
	}
	now := time.Now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	_, err := s.db.Exec(`
		INSERT INTO leads (id, contractor_id, chat_id, customer_name, customer_phone, location,
			job_type, interior_scope, exterior_scope, urgency, preferred_language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			contractor_id = EXCLUDED.contractor_id,
			customer_name = EXCLUDED.customer_name,
			customer_phone = EXCLUDED.customer_phone,
			location = EXCLUDED.location,
			job_type = EXCLUDED.job_type,
			interior_scope = EXCLUDED.interior_scope,
			exterior_scope = EXCLUDED.exterior_scope,
			urgency = EXCLUDED.urgency,
			preferred_language = EXCLUDED.preferred_language,
			updated_at = EXCLUDED.updated_at`,
		lead.ID, nilIfEmpty(lead.ContractorID), lead.ChatID, nilIfEmpty(lead.CustomerName),
		nilIfEmpty(lead.CustomerPhone), nilIfEmpty(lead.Location), lead.JobType,
		nilIfNilBool(lead.InteriorScope), nilIfNilBool(lead.ExteriorScope), lead.Urgency,
		nilIfEmpty(lead.PreferredLanguage), lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveLead failed", "error", err, "leadID", lead.ID)
		return fmt.Errorf("failed to save lead %s: %w", lead.ID, err)
	}
	slog.Debug("PostgresStore SaveLead succeeded", "leadID", lead.ID, "chatID", lead.ChatID)
	return nil
}

func (s *PostgresStore) GetLead(id string) (*models.Lead, error) {
	if id == "" {
		return nil, models.ErrEmptyLeadID
	}
	row := s.db.QueryRow(`SELECT id, contractor_id, chat_id, customer_name, customer_phone, location,
		job_type, interior_scope, exterior_scope, urgency, preferred_language, created_at, updated_at
		FROM leads WHERE id = $1`, id)
	lead, err := scanLeadRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrLeadNotFound
		}
		slog.Error("PostgresStore GetLead failed", "error", err, "leadID", id)
		return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
	}
	return &lead, nil
}

func (s *PostgresStore) ListLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT id, contractor_id, chat_id, customer_name, customer_phone, location,
		job_type, interior_scope, exterior_scope, urgency, preferred_language, created_at, updated_at
		FROM leads ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			slog.Error("PostgresStore ListLeads scan failed", "error", err)
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

func (s *PostgresStore) SaveMeasurement(m models.Measurement) error {
	if m.LeadID == "" {
		return models.ErrEmptyLeadID
	}
	dataJSON, err := json.Marshal(m.Data)
	if err != nil {
		slog.Error("PostgresStore SaveMeasurement marshal failed", "error", err, "leadID", m.LeadID)
		return fmt.Errorf("failed to encode measurement data: %w", err)
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	_, err = s.db.Exec(`
		INSERT INTO measurements (lead_id, data, created_at, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		m.LeadID, string(dataJSON), m.CreatedAt, now)
	if err != nil {
		slog.Error("PostgresStore SaveMeasurement failed", "error", err, "leadID", m.LeadID)
		return fmt.Errorf("failed to save measurement for lead %s: %w", m.LeadID, err)
	}
	return nil
}

func (s *PostgresStore) GetMeasurement(leadID string) (*models.Measurement, error) {
	if leadID == "" {
		return nil, models.ErrEmptyLeadID
	}
	row := s.db.QueryRow(`SELECT lead_id, data, created_at, updated_at FROM measurements WHERE lead_id = $1`, leadID)
	var m models.Measurement
	var dataJSON string
	if err := row.Scan(&m.LeadID, &dataJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Error("PostgresStore GetMeasurement failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to get measurement for lead %s: %w", leadID, err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &m.Data); err != nil {
		slog.Error("PostgresStore GetMeasurement unmarshal failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to decode measurement data: %w", err)
	}
	return &m, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
