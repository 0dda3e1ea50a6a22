package network

// ValidateOption tunes Validate.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	cycles bool
}

// WithCycleCheck enables depth-first cycle detection in addition to the
// reference checks.
func WithCycleCheck() ValidateOption {
	return func(c *validateConfig) { c.cycles = true }
}

// Validate checks every node for a parameter pair within [0, 1] and parent ids
// that exist in the network. Unknown labels are not an error; see Unlabeled. Failures are *GraphError values
// wrapping ErrMalformedGraph; the first failure in natural order is returned.
func (n *Network) Validate(opts ...ValidateOption) error {
	var cfg validateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, id := range n.order {
		node := n.nodes[id]
		if !node.CPT.valid() {
			return malformedf(n.name, id, "cpt %v outside [0, 1]", node.CPT)
		}
		for _, p := range node.Parents {
			if _, ok := n.nodes[p]; !ok {
				return malformedf(n.name, id, "unknown parent %q", p)
			}
		}
	}

	if cfg.cycles {
		return n.ValidateAcyclic()
	}
	return nil
}

// ValidateAcyclic runs a depth-first traversal along parent edges from every node
// in natural order and reports the first cycle found with a witness path.
// Unknown parents are skipped here; Validate reports them.
func (n *Network) ValidateAcyclic() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(n.order))
	var stack []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, p := range n.parents(id) {
			if _, ok := n.nodes[p]; !ok {
				continue
			}
			switch color[p] {
			case white:
				if dfs(p) {
					return true
				}
			case gray:
				// Back-edge id -> p: the cycle is the stack suffix starting at p.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == p {
						cycle = append(cycle, stack[i:]...)
						cycle = append(cycle, p)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range n.order {
		if color[id] != white {
			continue
		}
		if dfs(id) {
			return &GraphError{Network: n.name, Node: cycle[0], Msg: "dependency cycle", Cycle: cycle}
		}
	}
	return nil
}
