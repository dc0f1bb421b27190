package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator produces synthetic 64-bit identifiers composed of a
// millisecond timestamp, a node discriminator and an intra-tick
// sequence. Ids generated on one node strictly increase, ids across
// nodes stay approximately time-ordered, which is what keyset
// pagination relies on. Safe for concurrent use
type Generator struct {
	node *snowflake.Node
}

// New builds Generator for provided node id
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to init id generator for node %d - %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns the next identifier, never repeating a value
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
