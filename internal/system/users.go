package system

import (
	"encoding/json"
	"fmt"
	"sort"
)

var userKeyPrefix = []byte("user/")

func userKey(handle string) []byte {
	return append(append([]byte(nil), userKeyPrefix...), handle...)
}

func (s *System) persistUser(u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.db.Put(userKey(u.Handle), data)
}

func (s *System) loadUsers() error {
	return s.db.ForEach(userKeyPrefix, func(_, value []byte) error {
		var u User
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		s.users[u.Handle] = &u
		return nil
	})
}

// sortUsers orders users by registration instant, ties broken by handle.
func sortUsers(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].RegisteredAt != users[j].RegisteredAt {
			return users[i].RegisteredAt < users[j].RegisteredAt
		}
		return users[i].Handle < users[j].Handle
	})
}
