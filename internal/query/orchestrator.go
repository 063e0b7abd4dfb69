// Package query turns (resource, parameters) pairs into deduplicated,
// cached, cancellable reads and into mutation calls with stable keys for
// observability. Cache-invalidation timing stays with the caller: a
// successful mutation never invalidates anything implicitly.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-logistics/backoffice/internal/gateway"
	"github.com/meridian-logistics/backoffice/internal/resources"
)

// ErrDisabled is returned by reads issued with the enabled flag off: no
// request goes out and no cache entry is read or created.
var ErrDisabled = errors.New("query: read disabled")

// ErrMissingID is returned by mutations whose verb addresses a record but
// whose payload carries no identifier field.
var ErrMissingID = errors.New("query: payload missing id")

// Refresh describes a stale entry a background worker should refetch.
type Refresh struct {
	Resource string            `json:"resource"`
	ID       string            `json:"id,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Tier     string            `json:"tier"`
	Open     bool              `json:"open,omitempty"`
}

// Refresher accepts background refresh requests. The jobs package provides
// an asynq-backed implementation; a nil refresher makes stale reads block.
type Refresher interface {
	EnqueueRefresh(ctx context.Context, r Refresh) error
}

// Orchestrator coordinates reads and mutations on top of the gateway.
type Orchestrator struct {
	gw        *gateway.Client
	cache     *cache
	flights   singleflight.Group
	refresher Refresher
	logger    *slog.Logger
	now       func() time.Time
}

// Config collects orchestrator dependencies.
type Config struct {
	Gateway   *gateway.Client
	CacheSize int
	Refresher Refresher
	Logger    *slog.Logger
}

// New constructs an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("query: gateway required")
	}
	c, err := newCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gw:        cfg.Gateway,
		cache:     c,
		refresher: cfg.Refresher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type readOptions struct {
	tier       Tier
	tierSet    bool
	enabled    bool
	background bool
	open       bool
}

// ReadOption customizes a single read.
type ReadOption func(*readOptions)

// WithTier overrides the default staleness tier.
func WithTier(t Tier) ReadOption {
	return func(o *readOptions) {
		o.tier = t
		o.tierSet = true
	}
}

// WithEnabled gates the read. Disabled reads issue no request and touch no
// cache state, which lets callers defer a fetch until prerequisite data is
// available.
func WithEnabled(enabled bool) ReadOption {
	return func(o *readOptions) { o.enabled = enabled }
}

// WithBackgroundRefresh serves a stale entry immediately and hands the
// refetch to the background refresher instead of blocking.
func WithBackgroundRefresh() ReadOption {
	return func(o *readOptions) { o.background = true }
}

// WithOpenEndpoint targets the public, unauthenticated sibling of the list
// endpoint.
func WithOpenEndpoint() ReadOption {
	return func(o *readOptions) { o.open = true }
}

// Read fetches the list endpoint of a resource, caching under the canonical
// (resource, params) key. The default staleness tier is long.
func (o *Orchestrator) Read(ctx context.Context, res resources.Resource, params map[string]string, opts ...ReadOption) (*gateway.Envelope, error) {
	options := applyOptions(TierLong, opts)
	return o.read(ctx, res, "", params, options)
}

// ReadDetail fetches a single record. The id is folded into the cache key
// and the default tier is medium: detail views are fetched speculatively and
// should refresh sooner.
func (o *Orchestrator) ReadDetail(ctx context.Context, res resources.Resource, id string, params map[string]string, opts ...ReadOption) (*gateway.Envelope, error) {
	options := applyOptions(TierMedium, opts)
	return o.read(ctx, res, id, params, options)
}

func (o *Orchestrator) read(ctx context.Context, res resources.Resource, id string, params map[string]string, options readOptions) (*gateway.Envelope, error) {
	if !options.enabled {
		return nil, ErrDisabled
	}

	key := cacheKey(res, id, params)
	useCache := options.tier != TierNone

	if useCache {
		if cached, ok := o.cache.get(key); ok {
			if cached.fresh(o.now()) {
				return cached.env, nil
			}
			if options.background && o.refresher != nil {
				if err := o.refresher.EnqueueRefresh(ctx, Refresh{
					Resource: res.String(),
					ID:       id,
					Params:   params,
					Tier:     string(options.tier),
					Open:     options.open,
				}); err != nil {
					o.logger.Warn("enqueue cache refresh",
						slog.String("key", Digest(key)),
						slog.Any("error", err))
				} else {
					return cached.env, nil
				}
			}
		}
	}

	// Concurrent reads on the same key share one flight; the network sees a
	// single call.
	ch := o.flights.DoChan(key, func() (any, error) {
		env, err := o.fetch(ctx, res, id, params, options.open)
		if err != nil {
			return nil, err
		}
		if useCache {
			o.cache.put(key, &entry{env: env, fetchedAt: o.now(), tier: options.tier})
		}
		return env, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case flight := <-ch:
		if flight.Err != nil {
			return nil, flight.Err
		}
		return flight.Val.(*gateway.Envelope), nil
	}
}

func (o *Orchestrator) fetch(ctx context.Context, res resources.Resource, id string, params map[string]string, open bool) (*gateway.Envelope, error) {
	var path string
	switch {
	case id != "":
		path = resources.DetailPath(res, id, params)
	case open:
		q := resources.CanonicalQuery(params)
		path = resources.OpenPath(res)
		if q != "" {
			path += "?" + q
		}
	default:
		path = resources.ListPath(res, params)
	}
	return o.gw.Get(ctx, path)
}

// Refetch forces a network call and refreshes the cache entry. The
// background refresh worker drives it.
func (o *Orchestrator) Refetch(ctx context.Context, r Refresh) error {
	res, ok := resources.Parse(r.Resource)
	if !ok {
		return fmt.Errorf("query: unknown resource %q", r.Resource)
	}
	env, err := o.fetch(ctx, res, r.ID, r.Params, r.Open)
	if err != nil {
		return err
	}
	tier := Tier(r.Tier)
	if tier.Duration() == 0 && tier != TierNone {
		tier = TierLong
	}
	if tier != TierNone {
		key := cacheKey(res, r.ID, r.Params)
		o.cache.put(key, &entry{env: env, fetchedAt: o.now(), tier: tier})
	}
	return nil
}

// Mutate issues exactly one network call for the verb against the resource.
// There is no implicit retry and no cache interaction; re-triggering
// dependent reads is the caller's responsibility.
func (o *Orchestrator) Mutate(ctx context.Context, res resources.Resource, verb resources.Verb, payload any) (*gateway.Envelope, error) {
	id, err := payloadID(payload)
	if err != nil {
		return nil, err
	}
	if verb != resources.VerbCreate && id == "" {
		return nil, ErrMissingID
	}

	path := resources.MutationPath(res, verb, id)
	mutationKey := fmt.Sprintf("%s:%s", res, verb)
	o.logger.Info("mutation",
		slog.String("key", mutationKey),
		slog.String("path", path))

	switch verb.Method() {
	case "PUT":
		return o.gw.Put(ctx, path, payload)
	case "PATCH":
		return o.gw.Patch(ctx, path, payload)
	default:
		return o.gw.Post(ctx, path, payload)
	}
}

// FetchFile retrieves a binary document attached to a record.
func (o *Orchestrator) FetchFile(ctx context.Context, res resources.Resource, id, wantType string) ([]byte, error) {
	return o.gw.FetchBinary(ctx, resources.DetailPath(res, id, nil), wantType)
}

// Invalidate drops every cache entry for the resource. Callers invoke it
// explicitly after mutations they know obsolete cached reads.
func (o *Orchestrator) Invalidate(res resources.Resource) int {
	return o.cache.removePrefix(res.String() + "|")
}

// InvalidateKey drops the single entry for (resource, id, params).
func (o *Orchestrator) InvalidateKey(res resources.Resource, id string, params map[string]string) {
	o.cache.remove(cacheKey(res, id, params))
}

func applyOptions(defaultTier Tier, opts []ReadOption) readOptions {
	options := readOptions{tier: defaultTier, enabled: true}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// payloadID extracts the payload's own identifier field, used to address the
// record in mutation paths.
func payloadID(payload any) (string, error) {
	if payload == nil {
		return "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("query: encode payload: %w", err)
	}
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", nil
	}
	if len(probe.ID) == 0 {
		return "", nil
	}
	var asString string
	if err := json.Unmarshal(probe.ID, &asString); err == nil {
		return asString, nil
	}
	var asNumber int64
	if err := json.Unmarshal(probe.ID, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10), nil
	}
	return "", nil
}
