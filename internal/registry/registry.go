// Package registry tracks shared resource descriptors per owner identity.
// Registries enforce owner-only mutation; admission trust (which identity is
// calling) is delegated to the system facade.
package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nexus-share/nexus-ledger/internal/log"
	"github.com/nexus-share/nexus-ledger/internal/storage"
	"github.com/nexus-share/nexus-ledger/pkg/types"
)

// Resource is a published file descriptor. The owner identity is fixed at
// insertion; everything else is mutable by the owner through Update.
type Resource struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	SizeGB      float64        `json:"size_gb"`
	Uploader    string         `json:"uploader"`
	Seeds       int            `json:"seeds"`
	Peers       int            `json:"peers"`
	Description string         `json:"description"`
	Owner       types.Identity `json:"owner_address"`
	FileHash    string         `json:"file_hash"`
	Category    string         `json:"category"`
	UploadTime  int64          `json:"upload_time"`
	Active      bool           `json:"is_active"`
	StoragePath string         `json:"storage_path"`
}

func (r *Resource) clone() *Resource {
	c := *r
	return &c
}

// Query bounds a Search. Zero-value string fields and nil bounds are
// unconstrained; size and seed bounds are inclusive.
type Query struct {
	Keyword  string
	Category string
	MinSize  *float64
	MaxSize  *float64
	MinSeeds *int
}

// Registry is a keyed collection of resources with a private id counter.
// Each registry carries its own lock; mutations never cross registries.
type Registry struct {
	mu        sync.RWMutex
	owner     types.Identity
	nextID    uint64
	resources map[uint64]*Resource
	order     []uint64 // insertion order, search results follow it

	db storage.DB // nil = no persistence
}

// New creates an empty in-memory registry for the given owner identity.
func New(owner types.Identity) *Registry {
	return &Registry{
		owner:     owner,
		nextID:    1,
		resources: make(map[uint64]*Resource),
	}
}

// NewWithStore creates a registry written through to db, reloading any
// previously persisted resources.
func NewWithStore(owner types.Identity, db storage.DB) (*Registry, error) {
	r := New(owner)
	r.db = db

	err := db.ForEach(resourceKeyPrefix, func(_, value []byte) error {
		var res Resource
		if err := json.Unmarshal(value, &res); err != nil {
			return fmt.Errorf("decode resource: %w", err)
		}
		r.resources[res.ID] = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Ids are assigned monotonically, so id order is insertion order.
	r.order = sortedIDs(r.resources)
	for id := range r.resources {
		if id >= r.nextID {
			r.nextID = id + 1
		}
	}
	return r, nil
}

// Owner returns the identity this registry belongs to.
func (r *Registry) Owner() types.Identity {
	return r.owner
}

// Add inserts a resource: assigns the next id, stamps the owner and upload
// time, and returns the stored record.
func (r *Registry) Add(res Resource) *Resource {
	r.mu.Lock()
	defer r.mu.Unlock()

	res.ID = r.nextID
	r.nextID++
	res.Owner = r.owner
	res.UploadTime = time.Now().Unix()
	if res.Seeds < 0 {
		res.Seeds = 0
	}
	if res.Peers < 0 {
		res.Peers = 0
	}

	stored := res.clone()
	r.resources[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	r.persistLocked(stored)

	log.Registry.Debug().
		Uint64("id", stored.ID).
		Str("name", stored.Name).
		Str("owner", string(r.owner)).
		Msg("resource added")
	return stored.clone()
}

// Remove deletes a resource. Succeeds only when the record exists and the
// requester is the owner.
func (r *Registry) Remove(id uint64, requester types.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok || res.Owner != requester {
		return false
	}
	delete(r.resources, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.db != nil {
		if err := r.db.Delete(resourceKey(id)); err != nil {
			log.Registry.Error().Err(err).Uint64("id", id).Msg("persist resource delete")
		}
	}
	return true
}

// Update applies a patch to a resource. Succeeds only when the record
// exists and the requester is the owner. The id and owner keys are not
// mutable; an unknown key or a value of the wrong type fails the whole
// patch, leaving the record unchanged.
func (r *Registry) Update(id uint64, patch map[string]any, requester types.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok || res.Owner != requester {
		return false
	}

	updated := res.clone()
	for key, value := range patch {
		if !applyPatchField(updated, key, value) {
			return false
		}
	}
	r.resources[id] = updated
	r.persistLocked(updated)
	return true
}

// applyPatchField sets a single patchable field. Numeric values accept any
// numeric JSON decoding (float64) as well as native ints.
func applyPatchField(res *Resource, key string, value any) bool {
	switch key {
	case "name":
		return setString(&res.Name, value)
	case "size_gb":
		return setFloat(&res.SizeGB, value)
	case "uploader":
		return setString(&res.Uploader, value)
	case "seeds":
		return setInt(&res.Seeds, value)
	case "peers":
		return setInt(&res.Peers, value)
	case "description":
		return setString(&res.Description, value)
	case "category":
		return setString(&res.Category, value)
	case "file_hash":
		return setString(&res.FileHash, value)
	case "upload_time":
		var t int
		if !setInt(&t, value) {
			return false
		}
		res.UploadTime = int64(t)
		return true
	case "is_active":
		b, ok := value.(bool)
		if !ok {
			return false
		}
		res.Active = b
		return true
	case "storage_path":
		return setString(&res.StoragePath, value)
	default:
		// id, owner_address, and anything unknown.
		return false
	}
}

func setString(dst *string, v any) bool {
	s, ok := v.(string)
	if ok {
		*dst = s
	}
	return ok
}

func setFloat(dst *float64, v any) bool {
	switch n := v.(type) {
	case float64:
		*dst = n
	case int:
		*dst = float64(n)
	default:
		return false
	}
	return true
}

func setInt(dst *int, v any) bool {
	switch n := v.(type) {
	case int:
		*dst = n
	case float64:
		*dst = int(n)
	default:
		return false
	}
	return true
}

// Get returns a copy of the resource, or nil.
func (r *Registry) Get(id uint64) *Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[id]
	if !ok {
		return nil
	}
	return res.clone()
}

// ByOwner returns the resources whose owner matches, in insertion order.
func (r *Registry) ByOwner(owner types.Identity) []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Resource
	for _, id := range r.order {
		if res := r.resources[id]; res.Owner == owner {
			out = append(out, res.clone())
		}
	}
	return out
}

// All returns every resource in insertion order.
func (r *Registry) All() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Resource, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.resources[id].clone())
	}
	return out
}

// Active returns the resources with the active flag set, in insertion order.
func (r *Registry) Active() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Resource
	for _, id := range r.order {
		if res := r.resources[id]; res.Active {
			out = append(out, res.clone())
		}
	}
	return out
}

// Search returns the active resources matching the query, in insertion
// order. Keyword matches name or description case-insensitively; category
// matches exactly; size and seed bounds are inclusive.
func (r *Registry) Search(q Query) []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keyword := strings.ToLower(q.Keyword)
	var out []*Resource
	for _, id := range r.order {
		res := r.resources[id]
		if !res.Active {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(res.Name), keyword) &&
			!strings.Contains(strings.ToLower(res.Description), keyword) {
			continue
		}
		if q.Category != "" && res.Category != q.Category {
			continue
		}
		if q.MinSize != nil && res.SizeGB < *q.MinSize {
			continue
		}
		if q.MaxSize != nil && res.SizeGB > *q.MaxSize {
			continue
		}
		if q.MinSeeds != nil && res.Seeds < *q.MinSeeds {
			continue
		}
		out = append(out, res.clone())
	}
	return out
}

// AdjustCounts shifts the seed and peer counts, clamping both at zero. It
// does not check ownership: downloads bump seeds on the owner's registry.
func (r *Registry) AdjustCounts(id uint64, seedsDelta, peersDelta int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok {
		return false
	}
	res.Seeds += seedsDelta
	if res.Seeds < 0 {
		res.Seeds = 0
	}
	res.Peers += peersDelta
	if res.Peers < 0 {
		res.Peers = 0
	}
	r.persistLocked(res)
	return true
}

// Len returns the number of resources held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}

func (r *Registry) persistLocked(res *Resource) {
	if r.db == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		log.Registry.Error().Err(err).Uint64("id", res.ID).Msg("encode resource")
		return
	}
	if err := r.db.Put(resourceKey(res.ID), data); err != nil {
		log.Registry.Error().Err(err).Uint64("id", res.ID).Msg("persist resource")
	}
}
