package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo/postgres"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/config"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/db"
	sharedlog "github.com/Johnkennabii/velvena-pricing/internal/shared/log"
)

// CSV columns: name, organization_id, strategy, priority, is_active,
// calculation_config (flat JSON), applies_to (JSON, optional)
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: import-pricing-rules <csv-file-path>")
	}

	csvFilePath := os.Args[1]

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := sharedlog.Init(cfg.Log.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	dbConfig := db.DefaultConfig()
	dbConfig.DSN = cfg.Postgres.DSN
	if cfg.Postgres.MaxConns > 0 {
		dbConfig.MaxConns = cfg.Postgres.MaxConns
	}
	pool, err := db.NewPool(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	store, err := postgres.NewStoreWithPool(pool.Pool)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	rules, err := readRulesFromCSV(csvFilePath)
	if err != nil {
		log.Fatalf("Failed to read pricing rules from CSV: %v", err)
	}

	fmt.Printf("Loaded %d pricing rules from CSV\n", len(rules))

	imported := 0
	for _, rule := range rules {
		if _, err := store.Rules().Upsert(ctx, rule); err != nil {
			fmt.Printf("Warning: failed to import rule %q: %v\n", rule.Name, err)
			continue
		}
		imported++
	}

	fmt.Printf("Successfully imported %d of %d pricing rules\n", imported, len(rules))
}

func readRulesFromCSV(filePath string) ([]domain.PricingRule, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rules []domain.PricingRule
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		if len(record) < 6 {
			fmt.Printf("Warning: line %d has too few columns, skipping\n", line)
			continue
		}

		rule, err := parseRule(record)
		if err != nil {
			fmt.Printf("Warning: line %d: %v\n", line, err)
			continue
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func parseRule(record []string) (domain.PricingRule, error) {
	name := strings.TrimSpace(record[0])
	if name == "" {
		return domain.PricingRule{}, fmt.Errorf("name is empty")
	}

	var orgID *uuid.UUID
	if raw := strings.TrimSpace(record[1]); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return domain.PricingRule{}, fmt.Errorf("invalid organization_id %q", raw)
		}
		orgID = &parsed
	}

	strategy := domain.Strategy(strings.TrimSpace(record[2]))
	if !strategy.IsValid() {
		return domain.PricingRule{}, fmt.Errorf("unknown strategy %q", record[2])
	}

	priority, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("invalid priority %q", record[3])
	}

	isActive, err := strconv.ParseBool(strings.TrimSpace(record[4]))
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("invalid is_active %q", record[4])
	}

	cfg, err := domain.ParseCalculationConfig(strategy, []byte(record[5]))
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("invalid calculation_config: %w", err)
	}

	var appliesTo *domain.AppliesTo
	if len(record) > 6 && strings.TrimSpace(record[6]) != "" {
		appliesTo = &domain.AppliesTo{}
		if err := json.Unmarshal([]byte(record[6]), appliesTo); err != nil {
			return domain.PricingRule{}, fmt.Errorf("invalid applies_to: %w", err)
		}
	}

	return domain.PricingRule{
		Name:           name,
		OrganizationID: orgID,
		Strategy:       strategy,
		Config:         cfg,
		AppliesTo:      appliesTo,
		Priority:       priority,
		IsActive:       isActive,
	}, nil
}
