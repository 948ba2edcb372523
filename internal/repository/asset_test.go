package repository

import (
	"context"
	"testing"

	"halo-watcher/internal/domain"
)

func TestAssetGetMiss(t *testing.T) {
	_, assets := newTestRepos(t)

	got, err := assets.Get(context.Background(), domain.AssetKindMap, "missing", "v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on cache miss, got %+v", got)
	}
}

func TestAssetUpsertAndGet(t *testing.T) {
	_, assets := newTestRepos(t)
	ctx := context.Background()

	asset := &domain.Asset{
		Kind:        domain.AssetKindMap,
		AssetID:     "map-asset",
		VersionID:   "v1",
		PublicName:  "Aquarius",
		Description: "A symmetrical arena map.",
	}
	if err := assets.Upsert(ctx, asset); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// Repeated upsert must not error or duplicate.
	if err := assets.Upsert(ctx, asset); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := assets.Get(ctx, domain.AssetKindMap, "map-asset", "v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.PublicName != "Aquarius" {
		t.Fatalf("unexpected asset: %+v", got)
	}

	// Same IDs under a different kind live in a different table.
	other, err := assets.Get(ctx, domain.AssetKindMode, "map-asset", "v1")
	if err != nil {
		t.Fatalf("Get mode: %v", err)
	}
	if other != nil {
		t.Fatalf("expected miss in modes table, got %+v", other)
	}
}

func TestAssetVersionsAreDistinct(t *testing.T) {
	_, assets := newTestRepos(t)
	ctx := context.Background()

	for _, version := range []string{"v1", "v2"} {
		err := assets.Upsert(ctx, &domain.Asset{
			Kind:       domain.AssetKindMode,
			AssetID:    "mode-asset",
			VersionID:  version,
			PublicName: "Ranked Slayer " + version,
		})
		if err != nil {
			t.Fatalf("Upsert %s: %v", version, err)
		}
	}

	v1, err := assets.Get(ctx, domain.AssetKindMode, "mode-asset", "v1")
	if err != nil || v1 == nil {
		t.Fatalf("Get v1: %v, %+v", err, v1)
	}
	v2, err := assets.Get(ctx, domain.AssetKindMode, "mode-asset", "v2")
	if err != nil || v2 == nil {
		t.Fatalf("Get v2: %v, %+v", err, v2)
	}
	if v1.PublicName == v2.PublicName {
		t.Fatalf("versions should be independent rows")
	}
}
