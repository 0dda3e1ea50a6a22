package network

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedGraph is the kind of every structural graph failure: unknown parent
// ids, bad cpt pairs, duplicate ids and dependency cycles.
var ErrMalformedGraph = errors.New("malformed graph")

// GraphError wraps deterministic validation failures for a single network.
type GraphError struct {
	Network string
	Node    string
	Msg     string
	// Cycle holds one witness path (first id repeated at the end) when the
	// failure is a dependency cycle.
	Cycle []string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(ErrMalformedGraph.Error())
	if e.Network != "" {
		fmt.Fprintf(&b, " %q", e.Network)
	}
	if e.Node != "" {
		fmt.Fprintf(&b, ": node %q", e.Node)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Cycle) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Cycle, " -> "))
	}
	return b.String()
}

func (e *GraphError) Unwrap() error { return ErrMalformedGraph }

func malformedf(network, node, format string, args ...any) error {
	return &GraphError{Network: network, Node: node, Msg: fmt.Sprintf(format, args...)}
}
