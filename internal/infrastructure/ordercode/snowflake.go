// Package ordercode issues payment order codes from a snowflake node sized
// so that every code stays below 2^53, the provider's and JSON's safe limit.
package ordercode

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

const (
	nodeBits = 2
	stepBits = 8
	// 2024-01-01T00:00:00Z in milliseconds.
	epochMillis int64 = 1704067200000
)

var configure sync.Once

// Generator implements ports.OrderCodeGenerator.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator returns a generator for node (0..3). Distinct replicas must
// use distinct nodes.
func NewGenerator(node int64) (*Generator, error) {
	configure.Do(func() {
		snowflake.Epoch = epochMillis
		snowflake.NodeBits = nodeBits
		snowflake.StepBits = stepBits
	})
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("order code node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// Next returns a fresh positive order code.
func (g *Generator) Next() int64 {
	code := g.node.Generate().Int64()
	if code > domain.MaxOrderCode {
		// Only reachable ~278 years after the epoch.
		panic("ordercode: snowflake space exhausted")
	}
	return code
}
