package schema

import (
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry indexes kinds by message type and by name.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Kind
	byName map[string]Kind
}

// NewRegistry returns a registry holding kinds. Invalid kinds are skipped
// and logged; use Register to observe the error.
func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{byType: map[string]Kind{}, byName: map[string]Kind{}}
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			log.Warn().Err(err).Msg("schema.NewRegistry skip kind")
		}
	}
	return r
}

// Register validates k and adds it, replacing any kind with the same
// message type or name.
func (r *Registry) Register(k Kind) error {
	if err := k.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byType[k.MsgType]; ok {
		delete(r.byName, nameKey(old.Name))
	}
	if old, ok := r.byName[nameKey(k.Name)]; ok {
		delete(r.byType, old.MsgType)
	}
	r.byType[k.MsgType] = k
	r.byName[nameKey(k.Name)] = k
	log.Debug().Str("kind", k.Name).Str("msg_type", k.MsgType).Msg("schema.Register")
	return nil
}

// Lookup finds a kind by message type.
func (r *Registry) Lookup(msgType string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byType[msgType]
	return k, ok
}

// ByName finds a kind by name, case-insensitively.
func (r *Registry) ByName(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byName[nameKey(name)]
	return k, ok
}

// All returns the registered kinds sorted by name.
func (r *Registry) All() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.byName))
	for _, k := range r.byName {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
