// Package storage keeps raw track files, addressed by content hash.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path"

	"golang.org/x/crypto/blake2b"

	"groupride-api/config"
)

var ErrNotFound = errors.New("track file not found")

// TrackStore is a flat key/value store for raw track files.
type TrackStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ContentHash returns the hex BLAKE2b-256 digest of data.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TrackKey builds the storage key for a file with the given content hash.
// Keys are sharded by the first two hash characters.
func TrackKey(prefix, hash string) string {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return path.Join(prefix, shard, hash+".gpx")
}

// New builds the store selected by cfg.TrackStorage.
func New(ctx context.Context, cfg *config.Config) (TrackStore, error) {
	switch cfg.TrackStorage {
	case "", "local":
		return NewLocalStore(cfg.TrackStorageDir)
	case "minio":
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown track storage %q", cfg.TrackStorage)
	}
}
