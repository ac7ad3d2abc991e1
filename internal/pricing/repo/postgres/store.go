package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo"
)

// Store is the PostgreSQL-backed repo.Store implementation
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a store from a connection string
func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

// NewStoreWithPool wraps an existing pool
func NewStoreWithPool(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &Store{db: pool}, nil
}

// Rules returns the rule repository
func (s *Store) Rules() repo.RuleRepository { return &ruleRepository{store: s} }

// Items returns the item repository
func (s *Store) Items() repo.ItemRepository { return &itemRepository{store: s} }

// Defaults returns the defaults repository
func (s *Store) Defaults() repo.DefaultsRepository { return &defaultsRepository{store: s} }

// Close closes the underlying pool
func (s *Store) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

type ruleRepository struct {
	store *Store
}

const ruleColumns = `id, name, organization_id, service_type_id, strategy,
	calculation_config, applies_to, priority, is_active, created_at, updated_at`

// scanRule maps a pricing_rules row to the domain type, validating the
// config blob against the row's strategy at this load boundary.
func scanRule(row pgx.Row) (domain.PricingRule, error) {
	var (
		rule      domain.PricingRule
		rawConfig []byte
		rawApply  []byte
	)
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.OrganizationID,
		&rule.ServiceTypeID,
		&rule.Strategy,
		&rawConfig,
		&rawApply,
		&rule.Priority,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return domain.PricingRule{}, err
	}

	rule.Config, err = domain.ParseCalculationConfig(rule.Strategy, rawConfig)
	if err != nil {
		return domain.PricingRule{}, err
	}

	if len(rawApply) > 0 {
		var applies domain.AppliesTo
		if err := json.Unmarshal(rawApply, &applies); err != nil {
			return domain.PricingRule{}, fmt.Errorf("failed to decode applies_to: %w", err)
		}
		rule.AppliesTo = &applies
	}
	return rule, nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PricingRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM pricing_rules WHERE id = $1`

	rule, err := scanRule(r.store.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PricingRule{}, domain.NewNotFoundError("pricing rule", id.String())
		}
		return domain.PricingRule{}, fmt.Errorf("failed to get pricing rule: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) List(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM pricing_rules
		WHERE organization_id = $1 OR organization_id IS NULL
		ORDER BY priority DESC, name ASC`
	return r.queryRules(ctx, query, orgID)
}

func (r *ruleRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM pricing_rules
		WHERE is_active = true AND (organization_id = $1 OR organization_id IS NULL)
		ORDER BY priority DESC, name ASC`
	return r.queryRules(ctx, query, orgID)
}

func (r *ruleRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]domain.PricingRule, error) {
	rows, err := r.store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.PricingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pricing rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) Upsert(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error) {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	rawConfig, err := rule.Config.FlatJSON()
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("failed to encode calculation config: %w", err)
	}

	var rawApply []byte
	if rule.AppliesTo != nil {
		rawApply, err = json.Marshal(rule.AppliesTo)
		if err != nil {
			return domain.PricingRule{}, fmt.Errorf("failed to encode applies_to: %w", err)
		}
	}

	query := `INSERT INTO pricing_rules
		(id, name, organization_id, service_type_id, strategy, calculation_config, applies_to, priority, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			organization_id = EXCLUDED.organization_id,
			service_type_id = EXCLUDED.service_type_id,
			strategy = EXCLUDED.strategy,
			calculation_config = EXCLUDED.calculation_config,
			applies_to = EXCLUDED.applies_to,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING created_at, updated_at`

	var createdAt, updatedAt time.Time
	err = r.store.db.QueryRow(ctx, query,
		rule.ID, rule.Name, rule.OrganizationID, rule.ServiceTypeID,
		rule.Strategy, rawConfig, rawApply, rule.Priority, rule.IsActive,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("failed to upsert pricing rule: %w", err)
	}

	rule.CreatedAt = createdAt
	rule.UpdatedAt = updatedAt
	return rule, nil
}

func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.store.db.Exec(ctx, `DELETE FROM pricing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("pricing rule", id.String())
	}
	return nil
}

type itemRepository struct {
	store *Store
}

func (r *itemRepository) GetPricing(ctx context.Context, id uuid.UUID) (domain.ItemPricing, error) {
	// Numeric columns come back as text and are parsed into decimals to
	// avoid any float round-trip.
	query := `SELECT id, item_type,
			COALESCE(price_per_day_ht, 0)::text,
			COALESCE(price_per_day_ttc, 0)::text,
			COALESCE(price_ht, 0)::text,
			COALESCE(price_ttc, 0)::text
		FROM items WHERE id = $1`

	var item domain.ItemPricing
	var perDayHT, perDayTTC, priceHT, priceTTC string
	err := r.store.db.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.ItemType, &perDayHT, &perDayTTC, &priceHT, &priceTTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItemPricing{}, domain.NewNotFoundError("item", id.String())
		}
		return domain.ItemPricing{}, fmt.Errorf("failed to get item pricing: %w", err)
	}

	if item.PricePerDayHT, err = decimal.NewFromString(perDayHT); err != nil {
		return domain.ItemPricing{}, fmt.Errorf("invalid price_per_day_ht: %w", err)
	}
	if item.PricePerDayTTC, err = decimal.NewFromString(perDayTTC); err != nil {
		return domain.ItemPricing{}, fmt.Errorf("invalid price_per_day_ttc: %w", err)
	}
	if item.PriceHT, err = decimal.NewFromString(priceHT); err != nil {
		return domain.ItemPricing{}, fmt.Errorf("invalid price_ht: %w", err)
	}
	if item.PriceTTC, err = decimal.NewFromString(priceTTC); err != nil {
		return domain.ItemPricing{}, fmt.Errorf("invalid price_ttc: %w", err)
	}
	return item, nil
}

type defaultsRepository struct {
	store *Store
}

func (r *defaultsRepository) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*domain.BusinessDefaults, error) {
	query := `SELECT default_tax_rate::text, COALESCE(currency, '')
		FROM organization_settings WHERE organization_id = $1`

	var (
		rawRate  *string
		currency string
	)
	err := r.store.db.QueryRow(ctx, query, orgID).Scan(&rawRate, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization settings: %w", err)
	}

	defaults := &domain.BusinessDefaults{Currency: currency}
	if rawRate != nil {
		rate, err := decimal.NewFromString(*rawRate)
		if err != nil {
			return nil, fmt.Errorf("invalid default_tax_rate: %w", err)
		}
		defaults.DefaultTaxRate = &rate
	}
	return defaults, nil
}
