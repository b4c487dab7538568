package uid

import (
	"github.com/bwmarrin/snowflake"
)

// Snowflake generates 63-bit time-ordered ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator for node 1.
func NewSnowflake() (*Snowflake, error) {
	return NewSnowflakeNode(1)
}

// NewSnowflakeNode returns a generator for the given node number (0..1023).
//
// Each running instance must use a distinct node number.
func NewSnowflakeNode(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &Snowflake{node: n}, nil
}

// Generate returns a new id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
