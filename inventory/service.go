package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/gridops/cache"
	"github.com/jonwraymond/gridops/observe"
	"github.com/jonwraymond/gridops/resilience"
	"github.com/jonwraymond/gridops/store"
)

// Cache keys. Per-user keys share a prefix so invalidation can match by
// substring. flightUserRows dedups row loads that bypass the aggregate key.
const (
	keyAllUserData  = "all_user_data"
	keyUserMetadata = "user_metadata"
	keyAdminID      = "admin_id"

	userDataPrefix  = "user_data:"
	userPermsPrefix = "user_perms:"
	displayPrefix   = "user_inventory_display:"

	flightUserRows = "user_rows_load"
)

const defaultDeceasedMarker = "Deceased"

func userDataKey(id string) string  { return userDataPrefix + id }
func userPermsKey(id string) string { return userPermsPrefix + id }
func displayKey(id string) string   { return displayPrefix + id }

// Config configures the data-access service.
type Config struct {
	// Cache backs all reads. Required.
	Cache *cache.Memory

	// Store is the remote grid client. Required.
	Store store.Client

	// Layout describes the table geometry. Zero fields take defaults.
	Layout store.Layout

	// TTL holds the entry lifetimes. Zero fields take defaults.
	TTL cache.TTLPolicy

	// DeceasedMarker is the physical status item excluding a row from daily
	// credit. Default: "Deceased"
	DeceasedMarker string

	// Limiter, when set, contributes its statistics to SystemStats.
	Limiter *resilience.Limiter

	// SweepInterval, SnapshotInterval, and SnapshotPath configure the
	// background janitor started by Initialize. An empty SnapshotPath
	// disables persistence.
	SweepInterval    time.Duration
	SnapshotInterval time.Duration
	SnapshotPath     string

	Logger  observe.Logger
	Tracer  observe.Tracer
	Metrics *observe.Metrics
}

// Service is the data-access layer. Reads are cache-aside with in-flight
// deduplication; writes go to the store first and only touch the cache
// after the store accepts them.
type Service struct {
	config  Config
	layout  store.Layout
	cache   *cache.Memory
	store   store.Client
	ttl     cache.TTLPolicy
	logger  observe.Logger
	tracer  observe.Tracer
	metrics *observe.Metrics

	group     singleflight.Group
	janitor   *cache.Janitor
	startedAt time.Time
}

// NewService creates the data-access layer with defaults applied.
func NewService(config Config) (*Service, error) {
	if config.Store == nil {
		return nil, ErrMissingStore
	}
	if config.Cache == nil {
		return nil, ErrMissingCache
	}

	// Apply defaults
	if config.DeceasedMarker == "" {
		config.DeceasedMarker = defaultDeceasedMarker
	}
	if config.TTL.Default <= 0 {
		config.TTL.Default = cache.DefaultTTLPolicy().Default
	}
	if config.TTL.Short <= 0 {
		config.TTL.Short = cache.DefaultTTLPolicy().Short
	}
	if config.TTL.Long <= 0 {
		config.TTL.Long = cache.DefaultTTLPolicy().Long
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}

	return &Service{
		config:  config,
		layout:  config.Layout.Normalize(),
		cache:   config.Cache,
		store:   config.Store,
		ttl:     config.TTL,
		logger:  config.Logger.WithComponent("inventory"),
		tracer:  config.Tracer,
		metrics: config.Metrics,
	}, nil
}

// Metadata returns the id-keyed user metadata, loading it from the store
// on a cache miss. Concurrent misses collapse into one store call.
func (s *Service) Metadata(ctx context.Context) (map[string]UserMeta, error) {
	var cached map[string]UserMeta
	if s.cacheGet(ctx, keyUserMetadata, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(keyUserMetadata, func() (any, error) {
		var again map[string]UserMeta
		if s.cacheGet(ctx, keyUserMetadata, &again) {
			return again, nil
		}
		return s.loadMetadata(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]UserMeta), nil
}

// loadMetadata reads the metadata table and the inventory name column in
// one batched call and reconciles them into the id-keyed mapping. A
// failed admin lookup degrades every role to user rather than failing the
// whole load.
func (s *Service) loadMetadata(ctx context.Context) (map[string]UserMeta, error) {
	ctx, span := s.tracer.StartSpan(ctx, observe.OpMeta{Component: "inventory", Op: "load_metadata"})

	adminID, err := s.AdminID(ctx)
	if err != nil {
		s.logger.Warn(ctx, "admin id unavailable, roles default to user",
			observe.F("error", err.Error()),
		)
		adminID = ""
	}

	metaRange := s.layout.MetadataRange()
	nameRange := s.layout.NameRange()
	out, err := s.store.BatchGet(ctx, []string{metaRange, nameRange})
	if err != nil {
		s.tracer.EndSpan(span, err)
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	meta := parseMetadata(out[metaRange], out[nameRange], adminID)
	s.cacheSet(ctx, keyUserMetadata, meta, s.ttl.Long)
	s.logger.Debug(ctx, "metadata loaded", observe.F("users", len(meta)))
	s.tracer.EndSpan(span, nil)
	return meta, nil
}

// RefreshMetadata drops the cached metadata, admin id, and every derived
// permission entry, then reloads the metadata from the store.
func (s *Service) RefreshMetadata(ctx context.Context) (map[string]UserMeta, error) {
	s.cache.Delete(ctx, keyUserMetadata)
	s.cache.Delete(ctx, keyAdminID)
	dropped := s.cache.DeletePattern(ctx, userPermsPrefix)
	s.logger.Info(ctx, "metadata refresh requested", observe.F("perms_dropped", dropped))
	return s.Metadata(ctx)
}

// AdminID returns the administrator's external id from the metadata table.
func (s *Service) AdminID(ctx context.Context) (string, error) {
	var cached string
	if s.cacheGet(ctx, keyAdminID, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(keyAdminID, func() (any, error) {
		var again string
		if s.cacheGet(ctx, keyAdminID, &again) {
			return again, nil
		}

		id, err := s.store.SingleCell(ctx, s.layout.MetadataSheet, s.layout.AdminCell)
		if err != nil {
			return "", fmt.Errorf("load admin id: %w", err)
		}
		id = strings.TrimSpace(id)
		s.cacheSet(ctx, keyAdminID, id, s.ttl.Long)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// BatchUserData returns user records keyed by id. Without ids it returns
// every known user, serving the cached aggregate when fresh. With ids it
// returns the requested subset; ids with no backing row are simply absent
// from the result. Either way a load fetches all rows in one store call
// and caches each record individually, but only an unfiltered call caches
// the aggregate.
func (s *Service) BatchUserData(ctx context.Context, ids ...string) (map[string]UserRecord, error) {
	if len(ids) == 0 {
		var cached map[string]UserRecord
		if s.cacheGet(ctx, keyAllUserData, &cached) {
			return cached, nil
		}

		v, err, _ := s.group.Do(keyAllUserData, func() (any, error) {
			var again map[string]UserRecord
			if s.cacheGet(ctx, keyAllUserData, &again) {
				return again, nil
			}
			return s.loadUserData(ctx, true)
		})
		if err != nil {
			return nil, err
		}
		return v.(map[string]UserRecord), nil
	}

	out := make(map[string]UserRecord, len(ids))
	missing := false
	for _, id := range ids {
		var rec UserRecord
		if s.cacheGet(ctx, userDataKey(id), &rec) {
			out[id] = rec
		} else {
			missing = true
		}
	}
	if !missing {
		return out, nil
	}

	v, err, _ := s.group.Do(flightUserRows, func() (any, error) {
		// A load that just finished populated the per-user keys; any id
		// still missing after that was absent from the full read.
		again := make(map[string]UserRecord, len(ids))
		hit := true
		for _, id := range ids {
			var rec UserRecord
			if !s.cacheGet(ctx, userDataKey(id), &rec) {
				hit = false
				break
			}
			again[id] = rec
		}
		if hit {
			return again, nil
		}
		return s.loadUserData(ctx, false)
	})
	if err != nil {
		return nil, err
	}

	records := v.(map[string]UserRecord)
	subset := make(map[string]UserRecord, len(ids))
	for _, id := range ids {
		if rec, ok := records[id]; ok {
			subset[id] = rec
		}
	}
	return subset, nil
}

// loadUserData reads every row in one batched call and keys the parsed
// records by the row offsets the metadata already resolved. Each record
// lands in its own cache entry; the aggregate entry is written only for
// unfiltered loads.
func (s *Service) loadUserData(ctx context.Context, cacheAggregate bool) (map[string]UserRecord, error) {
	ctx, span := s.tracer.StartSpan(ctx, observe.OpMeta{Component: "inventory", Op: "load_user_data"})

	meta, err := s.Metadata(ctx)
	if err != nil {
		s.tracer.EndSpan(span, err)
		return nil, err
	}

	rng := s.layout.DataRange()
	out, err := s.store.BatchGet(ctx, []string{rng})
	if err != nil {
		s.tracer.EndSpan(span, err)
		return nil, fmt.Errorf("load user data: %w", err)
	}

	rows := out[rng]
	records := make(map[string]UserRecord, len(meta))
	for id, m := range meta {
		if m.Row < 0 || m.Row >= len(rows) {
			continue
		}
		records[id] = parseRecord(m, rows[m.Row])
	}

	if cacheAggregate {
		s.cacheSet(ctx, keyAllUserData, records, s.ttl.Short)
	}
	for id, rec := range records {
		s.cacheSet(ctx, userDataKey(id), rec, s.ttl.Short)
	}

	s.logger.Debug(ctx, "user data loaded",
		observe.F("rows", len(rows)),
		observe.F("matched", len(records)),
	)
	s.tracer.EndSpan(span, nil)
	return records, nil
}

// UserInventory returns one user's record. An id absent from the metadata
// table, or one whose name matched no row, fails with ErrNotFound before
// any row fetch.
func (s *Service) UserInventory(ctx context.Context, userID string) (UserRecord, error) {
	var cached UserRecord
	if s.cacheGet(ctx, userDataKey(userID), &cached) {
		return cached, nil
	}

	meta, err := s.Metadata(ctx)
	if err != nil {
		return UserRecord{}, err
	}
	m, ok := meta[userID]
	if !ok {
		return UserRecord{}, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if m.Row < 0 {
		return UserRecord{}, fmt.Errorf("%w: %s has no matching row", ErrNotFound, userID)
	}

	records, err := s.BatchUserData(ctx, userID)
	if err != nil {
		return UserRecord{}, err
	}
	rec, ok := records[userID]
	if !ok {
		return UserRecord{}, fmt.Errorf("%w: %s has no matching row", ErrNotFound, userID)
	}
	return rec, nil
}

// UpdateUserInventory merges the update into the user's current record and
// writes the whole row back in one store call. The cache is only touched
// after the store accepts the write: the merged record replaces the
// per-user entry and the batch and display projections are dropped.
func (s *Service) UpdateUserInventory(ctx context.Context, userID string, update Update) (UserRecord, error) {
	ctx, span := s.tracer.StartSpan(ctx, observe.OpMeta{Component: "inventory", Op: "update_user"})

	current, err := s.UserInventory(ctx, userID)
	if err != nil {
		s.tracer.EndSpan(span, err)
		return UserRecord{}, err
	}

	merged := current.Apply(update)
	vr := store.ValueRange{
		Range:  s.layout.RowRange(merged.Row),
		Values: [][]string{formatRow(merged)},
	}
	if err := s.store.BatchUpdate(ctx, []store.ValueRange{vr}); err != nil {
		s.tracer.EndSpan(span, err)
		return UserRecord{}, fmt.Errorf("update user %s: %w", userID, err)
	}

	s.writeThrough(ctx, merged)
	s.logger.Info(ctx, "user updated", observe.F("user_id", userID))
	s.tracer.EndSpan(span, nil)
	return merged, nil
}

// BatchUpdateUserInventory applies many users' updates in exactly one
// store write. Unknown ids fail the whole batch before anything is sent.
func (s *Service) BatchUpdateUserInventory(ctx context.Context, updates map[string]Update) (map[string]UserRecord, error) {
	if len(updates) == 0 {
		return map[string]UserRecord{}, nil
	}

	ctx, span := s.tracer.StartSpan(ctx, observe.OpMeta{Component: "inventory", Op: "batch_update_users"})

	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records, err := s.BatchUserData(ctx, ids...)
	if err != nil {
		s.tracer.EndSpan(span, err)
		return nil, err
	}

	merged := make(map[string]UserRecord, len(updates))
	data := make([]store.ValueRange, 0, len(updates))
	for _, id := range ids {
		rec, ok := records[id]
		if !ok {
			err := fmt.Errorf("%w: %s", ErrNotFound, id)
			s.tracer.EndSpan(span, err)
			return nil, err
		}
		m := rec.Apply(updates[id])
		merged[id] = m
		data = append(data, store.ValueRange{
			Range:  s.layout.RowRange(m.Row),
			Values: [][]string{formatRow(m)},
		})
	}

	if err := s.store.BatchUpdate(ctx, data); err != nil {
		s.tracer.EndSpan(span, err)
		return nil, fmt.Errorf("batch update: %w", err)
	}

	for _, m := range merged {
		s.writeThrough(ctx, m)
	}
	s.logger.Info(ctx, "batch update applied", observe.F("users", len(merged)))
	s.tracer.EndSpan(span, nil)
	return merged, nil
}

// writeThrough installs a freshly written record and drops the projections
// it invalidates. Called only after a store write succeeds.
func (s *Service) writeThrough(ctx context.Context, rec UserRecord) {
	s.cacheSet(ctx, userDataKey(rec.ID), rec, s.ttl.Short)
	s.cache.Delete(ctx, keyAllUserData)
	s.cache.Delete(ctx, displayKey(rec.ID))
}

// UserPermissions resolves the user's grant flags and admin standing. The
// administrator holds both grants unconditionally, whether or not the
// metadata table lists them.
func (s *Service) UserPermissions(ctx context.Context, userID string) (Permissions, error) {
	var cached Permissions
	if s.cacheGet(ctx, userPermsKey(userID), &cached) {
		return cached, nil
	}

	admin, err := s.AdminID(ctx)
	if err != nil {
		return Permissions{}, err
	}
	if admin != "" && userID == admin {
		perms := Permissions{CanGive: true, CanRevoke: true, IsAdmin: true}
		s.cacheSet(ctx, userPermsKey(userID), perms, s.ttl.Default)
		return perms, nil
	}

	meta, err := s.Metadata(ctx)
	if err != nil {
		return Permissions{}, err
	}
	m, ok := meta[userID]
	if !ok {
		return Permissions{}, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}

	perms := Permissions{
		CanGive:   m.CanGive,
		CanRevoke: m.CanRevoke,
	}
	s.cacheSet(ctx, userPermsKey(userID), perms, s.ttl.Default)
	return perms, nil
}

// IsDeceased reports whether the user's physical status list carries the
// deceased marker.
func (s *Service) IsDeceased(ctx context.Context, userID string) (bool, error) {
	rec, err := s.UserInventory(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec.HasStatus(s.config.DeceasedMarker), nil
}

// cacheGet reads and decodes a cached value, dropping entries that no
// longer decode.
func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	data, ok := s.cache.Get(ctx, key)
	s.metrics.RecordCacheAccess(ctx, ok)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.cache.Delete(ctx, key)
		s.logger.Warn(ctx, "dropping undecodable cache entry", observe.F("key", key))
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl.Effective(ttl)); err != nil {
		s.logger.Warn(ctx, "cache set failed",
			observe.F("key", key),
			observe.F("error", err.Error()),
		)
	}
}
