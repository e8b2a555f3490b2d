package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/summerlab/appagent/internal/domain"
)

// cacheFileVersion guards the on-disk format. A loader seeing a different
// version discards the file and rescans.
const cacheFileVersion = 1

// CacheConfig controls scan caching behavior.
type CacheConfig struct {
	// TTL is the maximum age of scan results before a refresh is forced.
	TTL time.Duration

	// MaxApps caps the aggregated record set.
	MaxApps int

	// CacheFile is the JSON side file persisted after each scan. Empty
	// disables persistence.
	CacheFile string
}

// cacheFile is the persisted shape: records + stats + timestamp, overwritten
// wholesale on every scan.
type cacheFile struct {
	Version   int                `json:"version"`
	Timestamp time.Time          `json:"timestamp"`
	Apps      []domain.AppRecord `json:"apps"`
	Stats     domain.ScanStats   `json:"stats"`
}

// Cache owns the aggregated scan results. It guarantees at most one in-flight
// scan at any instant; concurrent callers of EnsureScanned observe the same
// completed scan instead of each triggering their own.
type Cache struct {
	cfg      CacheConfig
	scanners []domain.SourceScanner
	agg      *Aggregator
	logger   *zap.Logger

	// scanMu is the single-flight scan guard.
	scanMu sync.Mutex

	// stateMu guards the fields below, which are replaced wholesale on
	// every successful scan.
	stateMu  sync.RWMutex
	scanned  bool
	records  []domain.AppRecord
	index    map[string]domain.AppRecord
	lastScan time.Time
	stats    domain.ScanStats
}

// NewCache creates a scan cache over the given scanners. The aggregator is
// built here from cfg.MaxApps so the configured cap always matches the one
// applied.
func NewCache(cfg CacheConfig, scanners []domain.SourceScanner, logger *zap.Logger) *Cache {
	return &Cache{
		cfg:      cfg,
		scanners: scanners,
		agg:      NewAggregator(cfg.MaxApps),
		logger:   logger,
		index:    make(map[string]domain.AppRecord),
	}
}

// EnsureScanned returns once results are available, scanning only if the
// cache is empty, force is set, or the TTL has expired. The staleness check
// is repeated under the scan guard so a caller that blocked behind an
// in-flight scan does not trigger a redundant one.
func (c *Cache) EnsureScanned(ctx context.Context, force bool) error {
	if !c.stale(force) {
		return nil
	}

	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	if !c.stale(force) {
		return nil
	}
	return c.scanAll(ctx)
}

func (c *Cache) stale(force bool) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if !c.scanned || force {
		return true
	}
	return c.cfg.TTL > 0 && time.Since(c.lastScan) > c.cfg.TTL
}

// Apps returns a snapshot copy of the cached records. Callers never observe
// mutation of the live cache.
func (c *Cache) Apps(ctx context.Context, force bool) ([]domain.AppRecord, error) {
	if err := c.EnsureScanned(ctx, force); err != nil {
		return nil, err
	}

	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	snapshot := make([]domain.AppRecord, len(c.records))
	copy(snapshot, c.records)
	return snapshot, nil
}

// Find resolves a name against the index: exact match on the normalized name
// first, then (when fuzzy is set) substring containment in either direction
// against every indexed key and display name. Fuzzy ties break
// deterministically: shortest indexed key wins, then lexicographic order.
func (c *Cache) Find(ctx context.Context, name string, fuzzy bool) (*domain.AppRecord, error) {
	if err := c.EnsureScanned(ctx, false); err != nil {
		return nil, err
	}

	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, nil
	}

	if rec, ok := c.index[query]; ok {
		return &rec, nil
	}
	if !fuzzy {
		return nil, nil
	}

	var keys []string
	for key, rec := range c.index {
		display := strings.ToLower(rec.DisplayName)
		if strings.Contains(key, query) || strings.Contains(query, key) ||
			strings.Contains(display, query) || strings.Contains(query, display) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	rec := c.index[keys[0]]
	return &rec, nil
}

// Refresh re-scans unconditionally, regardless of TTL, under the same
// single-flight guard.
func (c *Cache) Refresh(ctx context.Context) error {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	return c.scanAll(ctx)
}

// Stats returns the stats of the most recent completed scan.
func (c *Cache) Stats() domain.ScanStats {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.stats
}

// LastScan returns when the most recent scan completed.
func (c *Cache) LastScan() time.Time {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastScan
}

// scanAll fans the source scanners out concurrently, aggregates their
// results, and replaces the cache state wholesale. A failing scanner
// contributes zero records and one error count; it never aborts the scan.
// Callers must hold scanMu.
func (c *Cache) scanAll(ctx context.Context) error {
	start := time.Now()
	results := make([][]domain.AppRecord, len(c.scanners))
	var errCount int32

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range c.scanners {
		i, s := i, s
		g.Go(func() error {
			recs, err := s.Scan(gctx)
			if err != nil {
				c.logger.Warn("source scan failed",
					zap.String("scanner", s.Name()),
					zap.Error(err))
				atomic.AddInt32(&errCount, 1)
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait() // Scanner errors are counted, never propagated
	if err := ctx.Err(); err != nil {
		return err
	}

	// Concatenate in scanner registration order so reruns over identical
	// inputs deduplicate identically.
	var raw []domain.AppRecord
	for _, recs := range results {
		raw = append(raw, recs...)
	}

	stats := bucketStats(raw)
	stats.TotalScanned = len(raw)
	stats.ErrorCount = int(errCount)

	unique := c.agg.Aggregate(raw)
	index := buildIndex(unique)

	now := time.Now()
	stats.ScanDuration = now.Sub(start).Seconds()

	c.stateMu.Lock()
	c.records = unique
	c.index = index
	c.lastScan = now
	c.scanned = true
	c.stats = stats
	c.stateMu.Unlock()

	c.logger.Info("scan completed",
		zap.Int("unique_apps", len(unique)),
		zap.Int("raw_candidates", len(raw)),
		zap.Int("errors", int(errCount)),
		zap.Duration("duration", now.Sub(start)))

	if c.cfg.CacheFile != "" {
		if err := c.save(unique, stats, now); err != nil {
			c.logger.Error("failed to persist scan cache", zap.Error(err))
		}
	}
	return nil
}

// buildIndex maps normalized name variants to records. Later records win on
// key collisions, except the extension-stripped variant which never clobbers
// an existing key.
func buildIndex(records []domain.AppRecord) map[string]domain.AppRecord {
	index := make(map[string]domain.AppRecord, len(records)*2)
	for _, rec := range records {
		nameKey := strings.ToLower(rec.Name)
		index[nameKey] = rec

		if display := strings.ToLower(rec.DisplayName); display != nameKey {
			index[display] = rec
		}

		if strings.HasSuffix(nameKey, ".exe") {
			stripped := strings.TrimSuffix(nameKey, ".exe")
			if _, taken := index[stripped]; !taken {
				index[stripped] = rec
			}
		}
	}
	return index
}

// bucketStats counts raw candidates per source family.
func bucketStats(records []domain.AppRecord) domain.ScanStats {
	var stats domain.ScanStats
	for _, rec := range records {
		switch rec.Source {
		case domain.SourceRegistryAppPaths, domain.SourceRegistryUninstall, domain.SourceRegistryUserUninstall:
			stats.RegistryCount++
		case domain.SourceDesktopEntry:
			stats.DesktopEntryCount++
		case domain.SourceApplicationsDir:
			stats.BundleCount++
		case domain.SourceBinDirectory:
			stats.BinCount++
		case domain.SourceShortcutStartMenu, domain.SourceShortcutDesktop, domain.SourceShortcutCommon:
			stats.ShortcutCount++
		}
	}
	return stats
}

// save persists the cache state to the side file atomically (write + rename).
func (c *Cache) save(records []domain.AppRecord, stats domain.ScanStats, scannedAt time.Time) error {
	data, err := json.MarshalIndent(cacheFile{
		Version:   cacheFileVersion,
		Timestamp: scannedAt,
		Apps:      records,
		Stats:     stats,
	}, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", c.cfg.CacheFile, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, c.cfg.CacheFile); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// LoadFromDisk restores the cache state from the side file. It reports
// whether a load happened: a missing, stale, unreadable or version-mismatched
// file is skipped (the next EnsureScanned rescans), never an error to the
// process.
func (c *Cache) LoadFromDisk() (bool, error) {
	if c.cfg.CacheFile == "" {
		return false, nil
	}

	data, err := os.ReadFile(c.cfg.CacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var persisted cacheFile
	if err := json.Unmarshal(data, &persisted); err != nil {
		return false, fmt.Errorf("corrupt cache file: %w", err)
	}
	if persisted.Version != cacheFileVersion {
		c.logger.Info("ignoring cache file with unknown version",
			zap.Int("version", persisted.Version))
		return false, nil
	}
	if c.cfg.TTL > 0 && time.Since(persisted.Timestamp) > c.cfg.TTL {
		return false, nil
	}

	c.stateMu.Lock()
	c.records = persisted.Apps
	c.index = buildIndex(persisted.Apps)
	c.lastScan = persisted.Timestamp
	c.stats = persisted.Stats
	c.scanned = true
	c.stateMu.Unlock()

	c.logger.Info("loaded scan cache from disk",
		zap.Int("apps", len(persisted.Apps)),
		zap.Time("scanned_at", persisted.Timestamp))
	return true, nil
}

// Ensure Cache implements domain.AppIndex.
var _ domain.AppIndex = (*Cache)(nil)
