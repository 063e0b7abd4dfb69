// Package session persists the current token, visitor token, identity and
// permission grants in Redis and exposes a synchronous in-memory snapshot of
// them to the authorization and transport layers.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-logistics/backoffice/internal/authz"
	"github.com/meridian-logistics/backoffice/internal/resources"
)

const (
	keyToken        = "session:token"
	keyVisitorToken = "session:visitor_token"
	keyIdentity     = "session:identity"
	keyGrants       = "session:grants"
)

// Credentials is the pair of tokens the gateway attaches to outbound calls.
type Credentials struct {
	Token        string
	VisitorToken string
}

// Snapshot is a point-in-time copy of everything the session holds.
type Snapshot struct {
	Credentials Credentials
	Identity    *authz.Identity
	Grants      authz.Grants
	LoadedAt    time.Time
}

type identityPayload struct {
	RoleID      int64  `json:"role_id"`
	DisplayName string `json:"display_name"`
	Super       bool   `json:"super"`
}

// Store loads session state from Redis once per Refresh and serves snapshot
// reads from memory. Login and logout flows call Refresh explicitly instead
// of relying on read-once process globals.
type Store struct {
	client *redis.Client
	ttl    time.Duration

	mu      sync.RWMutex
	current Snapshot
}

// NewStore constructs a Store. ttl bounds how long persisted session keys
// live in Redis.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Refresh re-reads all session keys from Redis and replaces the in-memory
// snapshot. Missing keys yield an anonymous snapshot, not an error; malformed
// grant entries are skipped so a bad payload can only narrow access.
func (s *Store) Refresh(ctx context.Context) error {
	var snap Snapshot
	snap.LoadedAt = time.Now()

	token, err := s.getString(ctx, keyToken)
	if err != nil {
		return err
	}
	snap.Credentials.Token = token

	visitor, err := s.getString(ctx, keyVisitorToken)
	if err != nil {
		return err
	}
	snap.Credentials.VisitorToken = visitor

	rawIdent, err := s.getString(ctx, keyIdentity)
	if err != nil {
		return err
	}
	if rawIdent != "" {
		var p identityPayload
		if err := json.Unmarshal([]byte(rawIdent), &p); err != nil {
			return fmt.Errorf("session: decode identity: %w", err)
		}
		snap.Identity = &authz.Identity{RoleID: p.RoleID, DisplayName: p.DisplayName, Super: p.Super}
	}

	rawGrants, err := s.getString(ctx, keyGrants)
	if err != nil {
		return err
	}
	if rawGrants != "" {
		grants, err := decodeGrants([]byte(rawGrants))
		if err != nil {
			return err
		}
		snap.Grants = grants
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return nil
}

// Save persists a snapshot to Redis and makes it current. Used by the login
// flow and by tests.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if err := s.set(ctx, keyToken, snap.Credentials.Token); err != nil {
		return err
	}
	if err := s.set(ctx, keyVisitorToken, snap.Credentials.VisitorToken); err != nil {
		return err
	}
	ident := ""
	if snap.Identity != nil {
		data, err := json.Marshal(identityPayload{
			RoleID:      snap.Identity.RoleID,
			DisplayName: snap.Identity.DisplayName,
			Super:       snap.Identity.Super,
		})
		if err != nil {
			return err
		}
		ident = string(data)
	}
	if err := s.set(ctx, keyIdentity, ident); err != nil {
		return err
	}
	grants, err := encodeGrants(snap.Grants)
	if err != nil {
		return err
	}
	if err := s.set(ctx, keyGrants, grants); err != nil {
		return err
	}

	snap.LoadedAt = time.Now()
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return nil
}

// Clear deletes every persisted session key and zeroes the in-memory
// snapshot. This is the storage-clear half of the session-expiry contract.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, keyToken, keyVisitorToken, keyIdentity, keyGrants).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	s.mu.Lock()
	s.current = Snapshot{LoadedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current in-memory state. It never touches Redis.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Credentials implements the gateway credential source.
func (s *Store) Credentials() Credentials {
	return s.Snapshot().Credentials
}

func (s *Store) getString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("session: get %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) set(ctx context.Context, key, val string) error {
	if val == "" {
		if err := s.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		return nil
	}
	if err := s.client.Set(ctx, key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	return nil
}

// decodeGrants parses the wire form of the grant set: a JSON object mapping
// resource names to arrays of operation codes. Unknown resource names and
// invalid codes are dropped.
func decodeGrants(data []byte) (authz.Grants, error) {
	var wire map[string][]uint8
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("session: decode grants: %w", err)
	}
	grants := make(authz.Grants, len(wire))
	for name, codes := range wire {
		res, ok := resources.Parse(name)
		if !ok || res == resources.None {
			continue
		}
		ops := make([]authz.Op, 0, len(codes))
		for _, c := range codes {
			ops = append(ops, authz.Op(c))
		}
		grants[res] = authz.MaskOf(ops...)
	}
	return grants, nil
}

func encodeGrants(grants authz.Grants) (string, error) {
	if len(grants) == 0 {
		return "", nil
	}
	wire := make(map[string][]uint8, len(grants))
	for res, mask := range grants {
		ops := mask.Ops()
		codes := make([]uint8, 0, len(ops))
		for _, op := range ops {
			codes = append(codes, uint8(op))
		}
		wire[res.String()] = codes
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
