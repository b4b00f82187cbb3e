// Package registry resolves tickers to tracked company entities.
//
// Entities are loaded from TOML files in the configured registry
// directory at startup. A caller-supplied hint can introduce a company
// the registry does not know about yet, as long as the hint carries the
// identifiers the jurisdiction's ingestion strategy needs.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/models"
)

// Hint supplies identity details for a ticker the registry has not
// seen before. Jurisdiction is required; CIK or ScripCode is required
// per jurisdiction.
type Hint struct {
	Name         string
	Jurisdiction models.Jurisdiction
	CIK          string
	ScripCode    string
}

// registryFile is the on-disk shape of a registry TOML file. A file
// may hold one or many companies.
type registryFile struct {
	Companies []companyEntry `toml:"companies"`
}

type companyEntry struct {
	Ticker       string `toml:"ticker"`
	Name         string `toml:"name"`
	Jurisdiction string `toml:"jurisdiction"`
	CIK          string `toml:"cik"`
	ScripCode    string `toml:"scrip_code"`
}

// Service is an in-memory company registry.
type Service struct {
	mu       sync.RWMutex
	entities map[string]*models.Entity
	logger   arbor.ILogger
}

// NewService creates a registry and loads every .toml file in the
// configured directory. A missing directory is not an error; the
// registry starts empty and relies on hints.
func NewService(config *common.RegistryConfig, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		entities: make(map[string]*models.Entity),
		logger:   logger,
	}

	if config.Dir == "" {
		return s, nil
	}

	entries, err := os.ReadDir(config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("dir", config.Dir).Msg("Registry directory not found, starting empty")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read registry directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(config.Dir, entry.Name())
		if err := s.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load registry file %s: %w", entry.Name(), err)
		}
	}

	logger.Info().
		Int("companies", len(s.entities)).
		Str("dir", config.Dir).
		Msg("Company registry loaded")

	return s, nil
}

func (s *Service) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return err
	}

	for _, company := range file.Companies {
		jurisdiction, err := models.ParseJurisdiction(company.Jurisdiction)
		if err != nil {
			return fmt.Errorf("company %s: %w", company.Ticker, err)
		}

		entity := &models.Entity{
			Ticker:       strings.ToUpper(strings.TrimSpace(company.Ticker)),
			Name:         company.Name,
			Jurisdiction: jurisdiction,
			CIK:          company.CIK,
			ScripCode:    company.ScripCode,
		}
		if err := entity.Validate(); err != nil {
			return err
		}

		s.entities[entity.Ticker] = entity
	}

	return nil
}

// Register adds or replaces an entity. Used by tests and by callers
// that discover companies at runtime.
func (s *Service) Register(entity *models.Entity) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[strings.ToUpper(entity.Ticker)] = entity
	return nil
}

// Resolve maps a raw ticker to a tracked entity. If the ticker is not
// registered and the hint carries enough identity to build a valid
// entity, the entity is registered from the hint. Otherwise resolution
// fails with *models.UnknownEntityError.
func (s *Service) Resolve(rawTicker string, hint *Hint) (*models.Entity, error) {
	ticker := common.ParseTicker(rawTicker)
	if ticker.Code == "" {
		return nil, &models.UnknownEntityError{Ticker: rawTicker}
	}

	s.mu.RLock()
	entity, ok := s.entities[ticker.Code]
	s.mu.RUnlock()
	if ok {
		return entity, nil
	}

	if hint == nil {
		return nil, &models.UnknownEntityError{Ticker: ticker.Code}
	}

	candidate := &models.Entity{
		Ticker:       ticker.Code,
		Name:         hint.Name,
		Jurisdiction: hint.Jurisdiction,
		CIK:          hint.CIK,
		ScripCode:    hint.ScripCode,
	}
	if err := candidate.Validate(); err != nil {
		s.logger.Warn().
			Str("ticker", ticker.Code).
			Err(err).
			Msg("Hint does not identify a valid entity")
		return nil, &models.UnknownEntityError{Ticker: ticker.Code}
	}

	s.mu.Lock()
	s.entities[candidate.Ticker] = candidate
	s.mu.Unlock()

	s.logger.Info().
		Str("ticker", candidate.Ticker).
		Str("jurisdiction", string(candidate.Jurisdiction)).
		Msg("Registered entity from caller hint")

	return candidate, nil
}

// List returns all registered entities.
func (s *Service) List() []*models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	return out
}
