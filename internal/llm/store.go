package llm

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"support-triage/internal/crypto"
	"support-triage/internal/db"
	"support-triage/internal/models"
)

const providerColumns = `id, provider_name, api_key, model_name, base_url, temperature, max_tokens, cost_per_1k_input, cost_per_1k_output, max_requests_per_minute`

// Store is the Postgres provider registry. API keys are sealed at rest.
type Store struct {
	DB  *db.Store
	box *crypto.KeyBox
}

func NewStore(store *db.Store, masterKey string) (*Store, error) {
	box, err := crypto.NewKeyBox(masterKey)
	if err != nil {
		return nil, err
	}
	return &Store{DB: store, box: box}, nil
}

// ListProviders returns active, not unhealthy providers with the default first.
func (s *Store) ListProviders(ctx context.Context) ([]ProviderConfig, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT `+providerColumns+`
		FROM llm_providers
		WHERE is_active=TRUE AND health_status <> 'unhealthy'
		ORDER BY is_default DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []ProviderConfig
	for rows.Next() {
		cfg, err := s.scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (s *Store) GetProviderByID(ctx context.Context, providerID int64) (*ProviderConfig, error) {
	row := s.DB.Pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM llm_providers WHERE id=$1`, providerID)
	cfg, err := s.scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	return cfg, err
}

func (s *Store) scanConfig(row pgx.Row) (*ProviderConfig, error) {
	var cfg ProviderConfig
	if err := row.Scan(&cfg.ID, &cfg.ProviderName, &cfg.APIKey, &cfg.ModelName, &cfg.BaseURL, &cfg.Temperature, &cfg.MaxTokens, &cfg.CostPer1KInput, &cfg.CostPer1KOutput, &cfg.MaxRequestsPerMinute); err != nil {
		return nil, err
	}
	key, err := s.box.Open(cfg.APIKey)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = key
	return &cfg, nil
}

// ListProviderRecords lists every registered provider for display.
func (s *Store) ListProviderRecords(ctx context.Context) ([]models.LLMProvider, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, provider_name, model_name, base_url, temperature, max_tokens, cost_per_1k_input, cost_per_1k_output,
		       max_requests_per_minute, is_active, is_default, health_status, last_health_check, created_at
		FROM llm_providers
		ORDER BY is_default DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := []models.LLMProvider{}
	for rows.Next() {
		var p models.LLMProvider
		if err := rows.Scan(&p.ID, &p.ProviderName, &p.ModelName, &p.BaseURL, &p.Temperature, &p.MaxTokens, &p.CostPer1KInput, &p.CostPer1KOutput,
			&p.MaxRequestsPerMinute, &p.IsActive, &p.IsDefault, &p.HealthStatus, &p.LastHealthCheck, &p.CreatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// CreateProvider stores a provider and returns its id. A new default clears
// the previous one.
func (s *Store) CreateProvider(ctx context.Context, input models.LLMProviderInput) (int64, error) {
	sealed, err := s.box.Seal(input.APIKey)
	if err != nil {
		return 0, err
	}
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if input.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE llm_providers SET is_default=FALSE WHERE is_default=TRUE`); err != nil {
			return 0, err
		}
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO llm_providers (provider_name, api_key, model_name, base_url, temperature, max_tokens, cost_per_1k_input, cost_per_1k_output, max_requests_per_minute, is_default)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		input.ProviderName, sealed, input.ModelName, input.BaseURL, input.Temperature, input.MaxTokens,
		input.CostPer1KInput, input.CostPer1KOutput, input.MaxRequestsPerMinute, input.IsDefault).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) DeleteProvider(ctx context.Context, providerID int64) error {
	tag, err := s.DB.Pool.Exec(ctx, `DELETE FROM llm_providers WHERE id=$1`, providerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (s *Store) InsertUsage(ctx context.Context, providerID int64, record UsageRecord, costIn, costOut float64) error {
	_, err := s.DB.Pool.Exec(ctx, `
		INSERT INTO llm_usage_logs (provider_id, input_tokens, output_tokens, total_tokens, input_cost, output_cost, total_cost, response_time_ms, success, error_message, feature_used, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		providerID, record.InputTokens, record.OutputTokens, record.TotalTokens,
		record.InputCost(costIn), record.OutputCost(costOut), record.TotalCost(costIn, costOut),
		record.Latency.Milliseconds(), record.Success, record.ErrorMessage, record.Feature, time.Now().UTC())
	return err
}

func (s *Store) InsertHealth(ctx context.Context, providerID int64, status string, latency time.Duration, errorMessage *string) error {
	now := time.Now().UTC()
	_, err := s.DB.Pool.Exec(ctx, `
		INSERT INTO llm_provider_health (provider_id, check_time, status, latency_ms, error_message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		providerID, now, status, latency.Milliseconds(), errorMessage, now)
	if err != nil {
		return err
	}
	return s.SetProviderHealth(ctx, providerID, status)
}

func (s *Store) RecentHealthFailures(ctx context.Context, providerID int64) (int, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT status FROM llm_provider_health
		WHERE provider_id=$1
		ORDER BY check_time DESC
		LIMIT $2`, providerID, unhealthyAfter)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	failures := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, err
		}
		if status != healthOK {
			failures++
		}
	}
	return failures, rows.Err()
}

// ListProviderIDs includes unhealthy providers so they can recover.
func (s *Store) ListProviderIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.Pool.Query(ctx, `SELECT id FROM llm_providers WHERE is_active=TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) SetProviderHealth(ctx context.Context, providerID int64, status string) error {
	_, err := s.DB.Pool.Exec(ctx, `
		UPDATE llm_providers
		SET health_status=$1, last_health_check=$2
		WHERE id=$3`, status, time.Now().UTC(), providerID)
	return err
}
