package document

import (
	"context"
	"errors"
	"fmt"

	"scenario-writing-lab/internal/config"
	"scenario-writing-lab/internal/db"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
)

// maxCreateAttempts bounds how often Create draws a new id after a collision.
const maxCreateAttempts = 10

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version conflict")
)

// Store persists ScriptDocuments. Implementations must apply each Update
// atomically per document: concurrent updates never lose a write and never
// produce the same version twice. When patch.ExpectedVersion is set it is
// re-checked inside that atomic section.
type Store interface {
	ListByOwner(ctx context.Context, ownerID string) ([]ScriptDocument, error)
	GetByID(ctx context.Context, id string) (*ScriptDocument, error)
	Create(ctx context.Context, ownerID string, input CreateInput) (*ScriptDocument, error)
	Update(ctx context.Context, id string, patch Patch) (*ScriptDocument, error)
	Backend() string
}

// Closer is implemented by stores holding external connections.
type Closer interface {
	Close() error
}

// NewStore selects the backend named in cfg. Any failure to reach an external
// backend is logged and the in-process store is used instead, so startup
// never fails on store selection.
func NewStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) Store {
	table := cfg.CollectionName()

	switch cfg.DocumentStoreBackend {
	case config.BackendMemory, "":
		return NewMemoryStore()
	case config.BackendPostgres:
		gdb, err := db.Connect(cfg)
		if err == nil {
			var store *PostgresStore
			store, err = NewPostgresStore(gdb, table, true)
			if err == nil {
				logger.Info().Str("backend", config.BackendPostgres).Str("table", table).Msg("Document store ready")
				return store
			}
			_ = db.Close(gdb)
		}
		logger.Warn().Err(err).Str("backend", config.BackendPostgres).Msg("Document store unavailable, falling back to memory")
	case config.BackendDynamoDB:
		store, err := newDynamoStoreFromConfig(ctx, cfg, table)
		if err == nil {
			logger.Info().Str("backend", config.BackendDynamoDB).Str("table", table).Msg("Document store ready")
			return store
		}
		logger.Warn().Err(err).Str("backend", config.BackendDynamoDB).Msg("Document store unavailable, falling back to memory")
	default:
		logger.Warn().Str("backend", cfg.DocumentStoreBackend).Msg("Unknown document store backend, falling back to memory")
	}
	return NewMemoryStore()
}

func newDynamoStoreFromConfig(ctx context.Context, cfg *config.Config, table string) (*DynamoStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
	store := NewDynamoStore(client, table)
	if err := store.Ping(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
