package registry

import (
	"encoding/binary"
	"sort"
)

var resourceKeyPrefix = []byte("r/")

func resourceKey(id uint64) []byte {
	key := make([]byte, len(resourceKeyPrefix)+8)
	copy(key, resourceKeyPrefix)
	binary.BigEndian.PutUint64(key[len(resourceKeyPrefix):], id)
	return key
}

// sortedIDs reconstructs insertion order for a reloaded registry. Ids are
// assigned monotonically, so id order is insertion order.
func sortedIDs(resources map[uint64]*Resource) []uint64 {
	ids := make([]uint64, 0, len(resources))
	for id := range resources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
