package provision

import (
	"context"
	"fmt"
	"net/netip"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/awgman/awgman/pkg/clientconf"
	"github.com/awgman/awgman/pkg/ipam"
	"github.com/awgman/awgman/pkg/observability"
	"github.com/awgman/awgman/pkg/store"
	"github.com/awgman/awgman/pkg/wgcli"
	"github.com/awgman/awgman/pkg/wgkeys"
)

// userIDPattern constrains caller-supplied ids: they become JSON keys and
// log fields, so keep them to a safe charset and a sane length.
var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,63}$`)

// Store is the persistence surface the manager writes through.
type Store interface {
	Load() (map[string]store.User, error)
	Save(map[string]store.User) error
}

// UserSummary is the redacted listing form of a user: no private key and no
// rendered config, so bulk listings cannot leak key material.
type UserSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IP        string `json:"ip"`
	PublicKey string `json:"public_key"`
}

// Status reports interface health and pool occupancy. Status is advisory:
// controller failures are carried in Error rather than failing the call.
type Status struct {
	Interface    string `json:"interface"`
	Status       string `json:"status"`
	TotalUsers   int    `json:"total_users"`
	AvailableIPs int    `json:"available_ips"`
	Details      string `json:"details,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Config wires the manager's collaborators.
type Config struct {
	Pool      *ipam.Pool
	Keys      wgkeys.Generator
	Peers     wgcli.PeerController
	Store     Store
	Params    clientconf.Params
	Interface string
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// Manager owns the user lifecycle. It is the sole writer of user records
// and of the address pool.
type Manager struct {
	mu    sync.RWMutex
	users map[string]store.User

	pool    *ipam.Pool
	keys    wgkeys.Generator
	peers   wgcli.PeerController
	store   Store
	params  clientconf.Params
	iface   string
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewManager loads persisted users and seeds the pool with their addresses.
// A record whose address does not parse or falls outside the subnet fails
// startup.
func NewManager(cfg Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	users, err := cfg.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading user store: %w", err)
	}

	for id, user := range users {
		addr, err := netip.ParseAddr(user.IP)
		if err != nil {
			return nil, fmt.Errorf("user %s has invalid ip %q: %w", id, user.IP, err)
		}
		if err := cfg.Pool.MarkUsed(addr); err != nil {
			return nil, fmt.Errorf("user %s: %w", id, err)
		}
	}

	m := &Manager{
		users:   users,
		pool:    cfg.Pool,
		keys:    cfg.Keys,
		peers:   cfg.Peers,
		store:   cfg.Store,
		params:  cfg.Params,
		iface:   cfg.Interface,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	m.updateGauges()

	logger.WithField("users", len(users)).Info("lifecycle manager ready")
	return m, nil
}

// CreateUser provisions a new user: keypair, address, live peer entry, and
// persisted record, in that order. On a peer registration failure the
// tentative address is released before returning; on a store failure the
// peer is torn back down. Either way no partial record survives.
func (m *Manager) CreateUser(ctx context.Context, id, name string) (store.User, string, error) {
	if !userIDPattern.MatchString(id) {
		return store.User{}, "", fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	if name == "" {
		name = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[id]; exists {
		return store.User{}, "", fmt.Errorf("%w: %s", ErrDuplicateUser, id)
	}

	pair, err := m.keys.Generate(ctx)
	if err != nil {
		return store.User{}, "", fmt.Errorf("generating keypair: %w", err)
	}

	addr, err := m.pool.Allocate()
	if err != nil {
		return store.User{}, "", err
	}

	if err := m.addPeer(ctx, pair.PublicKey, addr.String()); err != nil {
		// The peer never made it onto the interface, so releasing the
		// tentative address restores full consistency.
		if relErr := m.pool.Release(addr); relErr != nil {
			m.logger.WithError(relErr).Error("releasing address after failed peer add")
		}
		return store.User{}, "", err
	}

	user := store.User{
		ID:         id,
		Name:       name,
		PrivateKey: pair.PrivateKey,
		PublicKey:  pair.PublicKey,
		IP:         addr.String(),
		AllowedIPs: addr.String() + "/32",
	}

	m.users[id] = user
	if err := m.save(); err != nil {
		// Roll the interface back so the store stays the source of truth.
		// If the removal itself fails the peer lingers until the next
		// resync pass or operator intervention; the record still does not
		// exist, which is the safer inconsistency.
		delete(m.users, id)
		if remErr := m.removePeer(ctx, pair.PublicKey); remErr != nil {
			m.logger.WithError(remErr).WithField("user_id", id).Error("rolling back peer after failed store write")
		}
		if relErr := m.pool.Release(addr); relErr != nil {
			m.logger.WithError(relErr).Error("releasing address after failed store write")
		}
		return store.User{}, "", err
	}
	m.updateGauges()

	m.logger.WithFields(map[string]interface{}{
		"user_id": id,
		"ip":      user.IP,
	}).Info("user created")

	return user, clientconf.Render(user, m.params), nil
}

// GetUser returns the stored record and a freshly rendered client config.
// Rendering is recomputed every call so parameter changes take effect on
// the next read. The boolean is false when the id is unknown.
func (m *Manager) GetUser(ctx context.Context, id string) (store.User, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return store.User{}, "", false
	}
	return user, clientconf.Render(user, m.params), true
}

// DeleteUser removes a user's peer entry, releases its address, and deletes
// its record. The peer removal goes first: if it fails the record stays, so
// bookkeeping is never dropped for a peer that might still be live.
func (m *Manager) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}

	if err := m.removePeer(ctx, user.PublicKey); err != nil {
		return err
	}

	if addr, err := netip.ParseAddr(user.IP); err == nil {
		if relErr := m.pool.Release(addr); relErr != nil {
			m.logger.WithError(relErr).WithField("user_id", id).Error("releasing address on delete")
		}
	}
	delete(m.users, id)

	if err := m.save(); err != nil {
		return err
	}
	m.updateGauges()

	m.logger.WithField("user_id", id).Info("user deleted")
	return nil
}

// ListUsers returns the redacted summary of every stored user, sorted by id.
func (m *Manager) ListUsers(ctx context.Context) []UserSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]UserSummary, 0, len(m.users))
	for _, user := range m.users {
		summaries = append(summaries, UserSummary{
			ID:        user.ID,
			Name:      user.Name,
			IP:        user.IP,
			PublicKey: user.PublicKey,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// ServerStatus reports user count, free pool capacity, and the raw
// interface diagnostic text. A controller failure degrades the status
// instead of failing the call.
func (m *Manager) ServerStatus(ctx context.Context) Status {
	m.mu.RLock()
	status := Status{
		Interface:    m.iface,
		Status:       "running",
		TotalUsers:   len(m.users),
		AvailableIPs: m.pool.Free(),
	}
	m.mu.RUnlock()

	details, err := m.dumpStatus(ctx)
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}
	status.Details = details
	return status
}

// Resync re-asserts every stored user as a peer on the interface. Adding an
// already-present peer replaces its configuration, so a full pass converges
// the interface back to the store after a restart or manual edit.
func (m *Manager) Resync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var failed int
	for _, id := range sortedIDs(m.users) {
		user := m.users[id]
		if err := m.addPeer(ctx, user.PublicKey, user.IP); err != nil {
			m.logger.WithError(err).WithField("user_id", id).Error("resync: re-adding peer")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("resync: %d of %d peers failed", failed, len(m.users))
	}
	return nil
}

// save persists the current user map and tracks the outcome.
func (m *Manager) save() error {
	err := m.store.Save(m.users)
	if m.metrics != nil {
		m.metrics.StoreSavesTotal.Inc()
		if err != nil {
			m.metrics.StoreSaveErrors.Inc()
		}
	}
	return err
}

func (m *Manager) addPeer(ctx context.Context, publicKey, ip string) error {
	start := time.Now()
	err := m.peers.AddPeer(ctx, publicKey, ip)
	if m.metrics != nil {
		m.metrics.ObservePeerCommand("add_peer", time.Since(start), err)
	}
	return err
}

func (m *Manager) removePeer(ctx context.Context, publicKey string) error {
	start := time.Now()
	err := m.peers.RemovePeer(ctx, publicKey)
	if m.metrics != nil {
		m.metrics.ObservePeerCommand("remove_peer", time.Since(start), err)
	}
	return err
}

func (m *Manager) dumpStatus(ctx context.Context) (string, error) {
	start := time.Now()
	details, err := m.peers.DumpStatus(ctx)
	if m.metrics != nil {
		m.metrics.ObservePeerCommand("dump_status", time.Since(start), err)
	}
	return details, err
}

func (m *Manager) updateGauges() {
	if m.metrics == nil {
		return
	}
	m.metrics.UsersTotal.Set(float64(len(m.users)))
	m.metrics.PoolFree.Set(float64(m.pool.Free()))
	m.metrics.PoolCapacity.Set(float64(m.pool.Capacity()))
}

func sortedIDs(users map[string]store.User) []string {
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
