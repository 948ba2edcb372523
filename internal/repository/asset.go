package repository

import (
	"context"
	"database/sql"
	"fmt"

	"halo-watcher/internal/domain"

	"github.com/rs/zerolog"
)

// AssetRepository caches map and mode reference data. Rows are keyed by
// (asset, version) and are never deleted or invalidated.
type AssetRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAssetRepository(sqlDB *sql.DB, logger zerolog.Logger) *AssetRepository {
	return &AssetRepository{db: sqlDB, logger: logger}
}

func tableFor(kind domain.AssetKind) (string, error) {
	switch kind {
	case domain.AssetKindMap:
		return "maps", nil
	case domain.AssetKindMode:
		return "modes", nil
	default:
		return "", fmt.Errorf("unknown asset kind %q", kind)
	}
}

// Get returns the cached asset, or nil on a cache miss.
func (r *AssetRepository) Get(ctx context.Context, kind domain.AssetKind, assetID, versionID string) (*domain.Asset, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT public_name, description FROM %s WHERE asset_id = ? AND version_id = ?`, table)

	asset := domain.Asset{Kind: kind, AssetID: assetID, VersionID: versionID}
	err = r.db.QueryRowContext(ctx, query, assetID, versionID).
		Scan(&asset.PublicName, &asset.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s asset: %w", table, err)
	}
	return &asset, nil
}

func (r *AssetRepository) Upsert(ctx context.Context, asset *domain.Asset) error {
	table, err := tableFor(asset.Kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (asset_id, version_id, public_name, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(asset_id, version_id) DO UPDATE SET
			public_name = excluded.public_name,
			description = excluded.description`, table)

	if _, err := r.db.ExecContext(ctx, query, asset.AssetID, asset.VersionID, asset.PublicName, asset.Description); err != nil {
		return fmt.Errorf("failed to upsert %s asset: %w", table, err)
	}

	r.logger.Debug().
		Str("kind", string(asset.Kind)).
		Str("asset_id", asset.AssetID).
		Str("version_id", asset.VersionID).
		Msg("asset cached")
	return nil
}
