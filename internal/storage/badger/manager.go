package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	document  interfaces.DocumentStorage
	freshness interfaces.FreshnessStorage
	artifact  interfaces.ArtifactStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		document:  NewDocumentStorage(db, logger),
		freshness: NewFreshnessStorage(db, logger),
		artifact:  NewArtifactStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// FreshnessStorage returns the Freshness storage interface
func (m *Manager) FreshnessStorage() interfaces.FreshnessStorage {
	return m.freshness
}

// ArtifactStorage returns the Artifact storage interface
func (m *Manager) ArtifactStorage() interfaces.ArtifactStorage {
	return m.artifact
}

// DB returns the underlying database connection
func (m *Manager) DB() *BadgerDB {
	return m.db
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
