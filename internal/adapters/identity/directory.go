// Package identity resolves operator IDs to display identities from the
// configured operator directory.
package identity

import (
	"context"
	"strings"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ctxutil"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// Operator is one configured directory entry.
type Operator struct {
	Name string
	Role string
}

// Directory implements secondary.IdentityProvider over a fixed operator map.
type Directory struct {
	operators map[string]Operator
}

// NewDirectory creates a directory. Keys are operator IDs, matched
// case-insensitively.
func NewDirectory(operators map[string]Operator) *Directory {
	copied := make(map[string]Operator, len(operators))
	for id, op := range operators {
		copied[strings.ToLower(strings.TrimSpace(id))] = op
	}
	return &Directory{operators: copied}
}

// ResolveUser returns the configured identity of actorID. Unknown operators
// resolve to their own ID so attribution never blocks an operation.
func (d *Directory) ResolveUser(_ context.Context, actorID string) (*secondary.UserIdentity, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperr.InvalidArgument("actor is required")
	}

	if op, ok := d.operators[strings.ToLower(actorID)]; ok {
		name := op.Name
		if name == "" {
			name = actorID
		}
		return &secondary.UserIdentity{ID: actorID, Name: name, Role: op.Role}, nil
	}
	if actorID == ctxutil.SystemActor {
		return &secondary.UserIdentity{ID: actorID, Name: "System", Role: "system"}, nil
	}
	return &secondary.UserIdentity{ID: actorID, Name: actorID}, nil
}

// Ensure Directory implements the interface
var _ secondary.IdentityProvider = (*Directory)(nil)
