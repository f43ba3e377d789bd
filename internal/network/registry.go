package network

import (
	"errors"
	"fmt"

	"github.com/mopay/agent-service/internal/models"
)

// ErrUnknownNetwork is returned when an id does not match any configured network.
var ErrUnknownNetwork = errors.New("unknown network")

// Defaults returns the built-in Ghanaian network set, in display order.
func Defaults() []models.Network {
	return []models.Network{
		{
			ID:          "mtn",
			DisplayName: "MTN Mobile Money",
			Color:       "#FFC107",
			USSDPrefix:  "*170#",
			APIBaseURL:  "https://api.mtn.com/momo",
		},
		{
			ID:          "airteltigo",
			DisplayName: "AirtelTigo Money",
			Color:       "#FF5722",
			USSDPrefix:  "*110#",
			APIBaseURL:  "https://api.airteltigo.com/momo",
		},
		{
			ID:          "vodafone",
			DisplayName: "Vodafone Cash",
			Color:       "#E91E63",
			USSDPrefix:  "*110#",
			APIBaseURL:  "https://api.vodafone.com/cash",
		},
	}
}

// Registry is the read-only set of supported networks. Descriptors are fixed
// at construction time and never change afterwards.
type Registry struct {
	order []string
	byID  map[string]models.Network
}

// NewRegistry builds a registry from the given descriptors, preserving order.
func NewRegistry(networks []models.Network) *Registry {
	r := &Registry{
		order: make([]string, 0, len(networks)),
		byID:  make(map[string]models.Network, len(networks)),
	}
	for _, n := range networks {
		if _, dup := r.byID[n.ID]; dup {
			continue
		}
		r.order = append(r.order, n.ID)
		r.byID[n.ID] = n
	}
	return r
}

// Get returns the descriptor for the given network id.
func (r *Registry) Get(id string) (models.Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return models.Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, id)
	}
	return n, nil
}

// All returns every configured network in display order.
func (r *Registry) All() []models.Network {
	out := make([]models.Network, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
