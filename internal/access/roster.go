// Package access implements the per-sender authorization gate.
package access

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeniedText is sent to senders that are not on the roster.
const DeniedText = "Id tidak terdaftar . . ."

// Roster is the fixed set of chat ids allowed to use the bot. It is built once
// at startup and never mutated, so concurrent reads need no locking.
type Roster struct {
	ids map[int64]struct{}
}

// Member is a single roster file entry.
type Member struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type rosterFile struct {
	Members []Member `yaml:"members"`
}

// NewRoster builds a roster from the given ids. Zero ids are ignored.
func NewRoster(ids ...int64) *Roster {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		set[id] = struct{}{}
	}
	return &Roster{ids: set}
}

// IsAuthorized reports whether id is on the roster.
func (r *Roster) IsAuthorized(id int64) bool {
	if r == nil {
		return false
	}
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of distinct authorized ids.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// LoadMembers reads roster members from a YAML file of the form
//
//	members:
//	  - id: 657952763
//	    name: owner
func LoadMembers(path string) ([]Member, error) {
	if path == "" {
		return nil, errors.New("roster file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var parsed rosterFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}

	for i, m := range parsed.Members {
		if m.ID == 0 {
			return nil, fmt.Errorf("roster member %d: id is required", i)
		}
	}

	return parsed.Members, nil
}

// Build assembles the roster from the owner id, the explicit id list and, when
// rosterPath is set, the members of the roster file.
func Build(ownerID int64, ids []int64, rosterPath string) (*Roster, error) {
	all := make([]int64, 0, len(ids)+1)
	all = append(all, ownerID)
	all = append(all, ids...)

	if rosterPath != "" {
		members, err := LoadMembers(rosterPath)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			all = append(all, m.ID)
		}
	}

	return NewRoster(all...), nil
}
