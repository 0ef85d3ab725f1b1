// Package system is the facade over the ledger: it owns the single chain,
// the handle-to-identity mapping, the per-user registries, and the composite
// operations that turn user intents into transactions and registry updates.
package system

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/chain"
	"github.com/nexus-share/nexus-ledger/internal/log"
	"github.com/nexus-share/nexus-ledger/internal/registry"
	"github.com/nexus-share/nexus-ledger/internal/storage"
	"github.com/nexus-share/nexus-ledger/pkg/block"
	"github.com/nexus-share/nexus-ledger/pkg/crypto"
	"github.com/nexus-share/nexus-ledger/pkg/tx"
	"github.com/nexus-share/nexus-ledger/pkg/types"
)

var (
	ErrHandleTaken   = errors.New("handle already registered")
	ErrUnknownHandle = errors.New("unknown handle")
)

// User binds a handle to its ledger identity.
type User struct {
	Handle       string         `json:"handle"`
	Identity     types.Identity `json:"identity"`
	RegisteredAt int64          `json:"registered_at"`
}

// System is the process-wide facade. Construct one per process (or per
// test); there is no package-level instance.
type System struct {
	params config.Params
	chain  *chain.Chain

	mu         sync.RWMutex // guards the user/registry maps, not the structures behind them
	users      map[string]*User
	registries map[types.Identity]*registry.Registry
	community  *registry.Registry

	db storage.DB // nil = in-memory only
}

// New creates an in-memory system: fresh chain, empty user table, and a
// community registry seeded with the demo resources.
func New(params config.Params) *System {
	s := &System{
		params:     params,
		chain:      chain.New(params),
		users:      make(map[string]*User),
		registries: make(map[types.Identity]*registry.Registry),
		community:  registry.New(types.CommunityIdentity),
	}
	seedCommunity(s.community)
	return s
}

// NewWithStore creates a system persisted to db. The chain snapshot is
// re-verified on reload; users and registries are reloaded as stored. The
// community registry is seeded only when empty.
func NewWithStore(params config.Params, db storage.DB) (*System, error) {
	c, err := chain.NewWithStore(params, chain.NewStore(storage.NewPrefixDB(db, []byte("chain/"))))
	if err != nil {
		return nil, err
	}
	s := &System{
		params:     params,
		chain:      c,
		users:      make(map[string]*User),
		registries: make(map[types.Identity]*registry.Registry),
		db:         db,
	}

	if err := s.loadUsers(); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range s.users {
		reg, err := registry.NewWithStore(u.Identity, s.registryDB(u.Identity))
		if err != nil {
			return nil, fmt.Errorf("load registry for %s: %w", u.Handle, err)
		}
		s.registries[u.Identity] = reg
	}

	s.community, err = registry.NewWithStore(types.CommunityIdentity, s.registryDB(types.CommunityIdentity))
	if err != nil {
		return nil, fmt.Errorf("load community registry: %w", err)
	}
	if s.community.Len() == 0 {
		seedCommunity(s.community)
	}
	return s, nil
}

func (s *System) registryDB(owner types.Identity) storage.DB {
	return storage.NewPrefixDB(s.db, []byte("reg/"+string(owner)+"/"))
}

// Chain exposes the underlying ledger, mainly for info queries and tests.
func (s *System) Chain() *chain.Chain {
	return s.chain
}

// Params returns the economics the system was constructed with.
func (s *System) Params() config.Params {
	return s.params
}

// RegisterUser mints an identity for a new handle, creates its registry,
// and enqueues the initial endowment. The endowment is spendable only after
// the next successful mine. Duplicate handles fail with ErrHandleTaken.
func (s *System) RegisterUser(handle string) (*User, error) {
	if handle == "" {
		return nil, ErrUnknownHandle
	}

	s.mu.Lock()
	if _, exists := s.users[handle]; exists {
		s.mu.Unlock()
		return nil, ErrHandleTaken
	}

	now := time.Now()
	user := &User{
		Handle:       handle,
		Identity:     crypto.DeriveIdentity(handle, now),
		RegisteredAt: now.Unix(),
	}
	s.users[handle] = user

	var reg *registry.Registry
	if s.db != nil {
		var err error
		reg, err = registry.NewWithStore(user.Identity, s.registryDB(user.Identity))
		if err != nil {
			delete(s.users, handle)
			s.mu.Unlock()
			return nil, err
		}
	} else {
		reg = registry.New(user.Identity)
	}
	s.registries[user.Identity] = reg
	s.mu.Unlock()

	if s.db != nil {
		if err := s.persistUser(user); err != nil {
			log.System.Error().Err(err).Str("handle", handle).Msg("persist user")
		}
	}

	endowment := tx.New(types.SystemIdentity, user.Identity, s.params.InitialCredit, tx.KindInitialCredit, nil)
	s.chain.AddTransaction(endowment)

	log.System.Info().
		Str("handle", handle).
		Str("identity", string(user.Identity)).
		Float64("endowment", s.params.InitialCredit).
		Msg("user registered")
	return user, nil
}

// GetUser returns the user for a handle, or nil.
func (s *System) GetUser(handle string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[handle]
}

// UserCount returns the number of registered users.
func (s *System) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// lookup returns the user and registry for a handle.
func (s *System) lookup(handle string) (*User, *registry.Registry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[handle]
	if !ok {
		return nil, nil, false
	}
	return u, s.registries[u.Identity], true
}

// DeclareUserResources publishes a resource to the handle's registry and
// enqueues the declaration reward (size_gb × credit-per-GB, truncated). If
// the reward cannot be enqueued the registry insertion is rolled back.
func (s *System) DeclareUserResources(handle string, res registry.Resource) bool {
	user, reg, ok := s.lookup(handle)
	if !ok || res.SizeGB < 0 {
		return false
	}

	stored := reg.Add(res)
	reward := s.params.CreditForSize(stored.SizeGB)
	payload := tx.Payload{
		"resource_id": stored.ID,
		"name":        stored.Name,
		"size_gb":     stored.SizeGB,
		"file_hash":   stored.FileHash,
	}
	declaration := tx.New(types.SystemIdentity, user.Identity, reward, tx.KindResourceDeclaration, payload)
	if !s.chain.AddTransaction(declaration) {
		reg.Remove(stored.ID, user.Identity)
		return false
	}

	log.System.Info().
		Str("handle", handle).
		Uint64("resource", stored.ID).
		Float64("reward", reward).
		Msg("resource declared")
	return true
}

// DownloadResource charges the downloader the resource's cost and credits
// the owner. The fee is checked against the downloader's spendable balance
// but never debited; it surfaces only in the miner's reward. On success the
// resource's seed count is bumped.
func (s *System) DownloadResource(downloaderHandle, ownerHandle string, id uint64) bool {
	downloader, _, ok := s.lookup(downloaderHandle)
	if !ok {
		return false
	}
	owner, ownerReg, ok := s.lookup(ownerHandle)
	if !ok || downloader.Identity == owner.Identity {
		return false
	}

	res := ownerReg.Get(id)
	if res == nil || !res.Active {
		return false
	}

	cost, fee := s.params.DownloadCost(res.SizeGB)
	if s.chain.Spendable(downloader.Identity) < cost+fee {
		log.System.Debug().
			Str("downloader", downloaderHandle).
			Float64("cost", cost).
			Float64("fee", fee).
			Msg("download refused: insufficient spendable balance")
		return false
	}

	payload := tx.Payload{
		"resource_id": res.ID,
		"name":        res.Name,
		"size_gb":     res.SizeGB,
		"file_hash":   res.FileHash,
	}
	payment := tx.New(downloader.Identity, owner.Identity, cost, tx.KindResourceDownload, payload)
	if !s.chain.AddTransaction(payment) {
		return false
	}

	ownerReg.AdjustCounts(id, 1, 0)
	log.System.Info().
		Str("downloader", downloaderHandle).
		Str("owner", ownerHandle).
		Uint64("resource", id).
		Float64("cost", cost).
		Msg("download recorded")
	return true
}

// TransferCredits moves credits directly between two handles. Admission
// follows the chain's spendable-balance rule.
func (s *System) TransferCredits(fromHandle, toHandle string, amount float64) bool {
	from, _, ok := s.lookup(fromHandle)
	if !ok || amount <= 0 {
		return false
	}
	to, _, ok := s.lookup(toHandle)
	if !ok || from.Identity == to.Identity {
		return false
	}
	transfer := tx.New(from.Identity, to.Identity, amount, tx.KindTransfer, nil)
	return s.chain.AddTransaction(transfer)
}

// MineBlock mines the pending pool on behalf of a handle. Returns nil when
// the handle is unknown or the pool is empty.
func (s *System) MineBlock(ctx context.Context, handle string) (*block.Block, error) {
	user, _, ok := s.lookup(handle)
	if !ok {
		return nil, ErrUnknownHandle
	}
	return s.chain.MinePending(ctx, user.Identity)
}

// GetUserBalance returns the confirmed balance for a handle.
func (s *System) GetUserBalance(handle string) (float64, bool) {
	user, _, ok := s.lookup(handle)
	if !ok {
		return 0, false
	}
	return s.chain.Balance(user.Identity), true
}

// GetBlockchainInfo returns the chain's info document.
func (s *System) GetBlockchainInfo() chain.Info {
	return s.chain.Info()
}

// registriesInOrder returns the community registry followed by every user
// registry in handle registration order.
func (s *System) registriesInOrder() []*registry.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sortUsers(users)

	regs := make([]*registry.Registry, 0, len(users)+1)
	regs = append(regs, s.community)
	for _, u := range users {
		regs = append(regs, s.registries[u.Identity])
	}
	return regs
}

// GetAllResources returns every resource across the community and user
// registries.
func (s *System) GetAllResources() []*registry.Resource {
	var out []*registry.Resource
	for _, reg := range s.registriesInOrder() {
		out = append(out, reg.All()...)
	}
	return out
}

// SearchResources runs the query across the community and user registries.
// Only active resources match; per-registry insertion order is preserved.
func (s *System) SearchResources(q registry.Query) []*registry.Resource {
	var out []*registry.Resource
	for _, reg := range s.registriesInOrder() {
		out = append(out, reg.Search(q)...)
	}
	return out
}

// GetUserResources returns the resources published by a handle.
func (s *System) GetUserResources(handle string) ([]*registry.Resource, bool) {
	user, reg, ok := s.lookup(handle)
	if !ok {
		return nil, false
	}
	return reg.ByOwner(user.Identity), true
}

// RemoveResource deletes a resource from the requester's own registry.
func (s *System) RemoveResource(handle string, id uint64) bool {
	user, reg, ok := s.lookup(handle)
	if !ok {
		return false
	}
	return reg.Remove(id, user.Identity)
}

// UpdateResource patches a resource in the requester's own registry. The
// id and owner keys are rejected by the registry.
func (s *System) UpdateResource(handle string, id uint64, patch map[string]any) bool {
	user, reg, ok := s.lookup(handle)
	if !ok {
		return false
	}
	return reg.Update(id, patch, user.Identity)
}

// ReportResource flags a resource on the owner's registry: it is
// deactivated pending review. The deactivation rides on the owner-scoped
// update path; the facade acts with the owner's identity.
func (s *System) ReportResource(ownerHandle string, id uint64, reason string) bool {
	owner, reg, ok := s.lookup(ownerHandle)
	if !ok {
		return false
	}
	if !reg.Update(id, map[string]any{"is_active": false}, owner.Identity) {
		return false
	}
	log.System.Warn().
		Str("owner", ownerHandle).
		Uint64("resource", id).
		Str("reason", reason).
		Msg("resource reported and deactivated")
	return true
}
