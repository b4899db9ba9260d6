package vault

import (
	"context"
	"fmt"

	"filesentry/internal/config"
	"filesentry/internal/retention"
)

// NewArchiverFromConfig creates an Archiver based on the archive config
// type. An empty type disables archiving and returns nil.
func NewArchiverFromConfig(ctx context.Context, cfg config.ArchiveConfig) (retention.Archiver, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryVault(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem archive")
		}
		return NewFileSystemVault(cfg.FSRoot)
	case "s3":
		return NewS3Vault(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

var (
	_ retention.Archiver = (*MemoryVault)(nil)
	_ retention.Archiver = (*FileSystemVault)(nil)
	_ retention.Archiver = (*S3Vault)(nil)
)
