package library

import (
	"context"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// Commands provides operations that hit the remote store and change the
// published catalog.
type Commands struct {
	lib *Library
}

// ScanLibrary scans the remote tree and publishes the result. A result is
// discarded when a scan started later has already published; the caller
// still receives its own catalog.
func (c *Commands) ScanLibrary(ctx context.Context) (domain.Catalog, error) {
	gen := c.lib.begin()
	c.lib.logger.Debug("starting library scan", "generation", gen)

	result, err := c.lib.scanner.Scan(ctx)
	if err != nil {
		c.lib.logger.Error("library scan failed", "generation", gen, "error", err)
		return domain.Catalog{}, err
	}

	if !c.lib.publish(gen, result) {
		c.lib.logger.Info("discarding stale scan result", "generation", gen)
	}
	return result, nil
}
