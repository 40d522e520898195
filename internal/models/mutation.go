package models

import (
	"fmt"
	"strings"
)

// MutationKind is the bulk operation applied to a set of entries.
type MutationKind int

const (
	Publish MutationKind = iota + 1
	Unpublish
	Delete
	Upsert
)

var mutationNames = map[MutationKind]string{
	Publish:   "publish",
	Unpublish: "unpublish",
	Delete:    "delete",
	Upsert:    "upsert",
}

func (k MutationKind) String() string {
	if name, ok := mutationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MutationKind(%d)", int(k))
}

// Valid reports whether k is one of the defined kinds.
func (k MutationKind) Valid() bool {
	_, ok := mutationNames[k]
	return ok
}

// HasJobAPI reports whether the remote API accepts k as an asynchronous bulk job.
func (k MutationKind) HasJobAPI() bool {
	return k == Publish || k == Unpublish
}

// ParseMutationKind parses a kind name, case-insensitively.
func ParseMutationKind(s string) (MutationKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range mutationNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown mutation kind %q", s)
}
