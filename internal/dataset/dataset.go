// Package dataset reads network sets and vignettes from JSON documents and
// writes merged result files. Object key order in the source documents is kept
// as the natural order of networks, nodes and vignettes.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AbdouB/twindx/internal/models"
	"github.com/AbdouB/twindx/internal/network"
)

// Default file names inside a data directory.
const (
	NetworksFile  = "example_networks.json"
	VignettesFile = "vignettes.json"
	ResultsFile   = "experimental_results.json"
)

// NetworkSet is an ordered collection of named networks. It is read-only after
// loading and is passed explicitly to every consumer.
type NetworkSet struct {
	names  []string
	byName map[string]*network.Network
}

// NewNetworkSet builds a set from networks in the given order. Later networks
// with a repeated name replace earlier ones.
func NewNetworkSet(nets ...*network.Network) *NetworkSet {
	s := &NetworkSet{byName: make(map[string]*network.Network, len(nets))}
	for _, n := range nets {
		if _, dup := s.byName[n.Name()]; !dup {
			s.names = append(s.names, n.Name())
		}
		s.byName[n.Name()] = n
	}
	return s
}

// Get returns the network called name.
func (s *NetworkSet) Get(name string) (*network.Network, bool) {
	n, ok := s.byName[name]
	return n, ok
}

// Names returns network names in document order.
func (s *NetworkSet) Names() []string { return append([]string(nil), s.names...) }

// Len returns the number of networks.
func (s *NetworkSet) Len() int { return len(s.names) }

// Validate validates every network and joins all failures.
func (s *NetworkSet) Validate(opts ...network.ValidateOption) error {
	var errs []error
	for _, name := range s.names {
		if err := s.byName[name].Validate(opts...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type rawNode struct {
	Name    string    `json:"name,omitempty"`
	Label   string    `json:"label"`
	Parents []string  `json:"parents"`
	CPT     []float64 `json:"cpt"`
}

// LoadNetworks reads a network set file: an object of network name to an object
// of node id to node record.
func LoadNetworks(path string) (*NetworkSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open networks file: %w", err)
	}
	defer f.Close()

	set, err := DecodeNetworks(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return set, nil
}

// DecodeNetworks decodes a network set document from r.
func DecodeNetworks(r io.Reader) (*NetworkSet, error) {
	dec := json.NewDecoder(r)
	var nets []*network.Network

	err := decodeObject(dec, func(name string) error {
		var nodes []network.Node
		err := decodeObject(dec, func(id string) error {
			var raw rawNode
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("node %q: %w", id, err)
			}
			node, err := raw.node(name, id)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
			return nil
		})
		if err != nil {
			return fmt.Errorf("network %q: %w", name, err)
		}
		net, err := network.New(name, nodes)
		if err != nil {
			return err
		}
		nets = append(nets, net)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewNetworkSet(nets...), nil
}

func (r rawNode) node(netName, id string) (network.Node, error) {
	cpt := network.DefaultCPT
	switch len(r.CPT) {
	case 0:
	case 2:
		cpt = network.CPT{r.CPT[0], r.CPT[1]}
	default:
		return network.Node{}, &network.GraphError{
			Network: netName, Node: id,
			Msg: fmt.Sprintf("cpt must have 2 elements, got %d", len(r.CPT)),
		}
	}
	return network.Node{
		ID:      id,
		Name:    r.Name,
		Label:   network.Label(r.Label),
		Parents: r.Parents,
		CPT:     cpt,
	}, nil
}

// LoadVignettes reads a vignettes file: an object of vignette id to record.
func LoadVignettes(path string) ([]models.Vignette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vignettes file: %w", err)
	}
	defer f.Close()

	vs, err := DecodeVignettes(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return vs, nil
}

// DecodeVignettes decodes a vignettes document from r in document order.
func DecodeVignettes(r io.Reader) ([]models.Vignette, error) {
	dec := json.NewDecoder(r)
	var out []models.Vignette
	err := decodeObject(dec, func(id string) error {
		var v models.Vignette
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("vignette %q: %w", id, err)
		}
		v.ID = id
		out = append(out, v)
		return nil
	})
	return out, err
}

// decodeObject walks the keys of the next JSON object, calling fn with the
// decoder positioned at each value. fn must consume exactly that value.
func decodeObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// WriteResults writes the merged results document
// {vignette id: {posterior, disablement, sufficiency}} to path.
func WriteResults(path string, results []models.VignetteResult) error {
	merged := make(map[string]models.Bundle, len(results))
	for _, r := range results {
		merged[r.VignetteID] = r.Bundle
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadResults reads a merged results document written by WriteResults.
func ReadResults(path string) (map[string]models.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var out map[string]models.Bundle
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return out, nil
}
