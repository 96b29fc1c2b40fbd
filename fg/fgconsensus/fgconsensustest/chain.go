// Package fgconsensustest provides fixtures for tests
// involving fgconsensus types.
package fgconsensustest

import (
	"fmt"

	"github.com/gordian-engine/gfinality/fg/fgconsensus"
)

// Chain is an in-memory block tree for tests.
// It answers the ancestry queries that both the round ledger
// and the round driver's environment require.
//
// Chain methods are not safe for concurrent use with MustAddBlock;
// tests are expected to build the tree up front.
type Chain struct {
	blocks map[string]chainBlock
}

type chainBlock struct {
	parent string
	number uint64
}

// NewChain returns a Chain containing only the genesis block
// with the given hash, at number 0.
func NewChain(genesisHash string) *Chain {
	return &Chain{
		blocks: map[string]chainBlock{
			genesisHash: {number: 0},
		},
	}
}

// MustAddBlock adds a block with the given hash as a child of parentHash
// and returns its target.
// It panics if parentHash is unknown or hash is already present,
// as both indicate a malformed test setup.
func (c *Chain) MustAddBlock(hash, parentHash string) fgconsensus.Target {
	p, ok := c.blocks[parentHash]
	if !ok {
		panic(fmt.Errorf("parent block %q unknown", parentHash))
	}
	if _, ok := c.blocks[hash]; ok {
		panic(fmt.Errorf("block %q already present", hash))
	}

	c.blocks[hash] = chainBlock{parent: parentHash, number: p.number + 1}
	return fgconsensus.Target{Hash: hash, Number: p.number + 1}
}

// MustAddChain adds a linear run of blocks, each the child of the previous,
// starting from parentHash, and returns the target of the last one.
func (c *Chain) MustAddChain(parentHash string, hashes ...string) fgconsensus.Target {
	var t fgconsensus.Target
	for _, h := range hashes {
		t = c.MustAddBlock(h, parentHash)
		parentHash = h
	}
	return t
}

// Target returns the target for a known block hash,
// panicking on unknown hashes.
func (c *Chain) Target(hash string) fgconsensus.Target {
	b, ok := c.blocks[hash]
	if !ok {
		panic(fmt.Errorf("block %q unknown", hash))
	}
	return fgconsensus.Target{Hash: hash, Number: b.number}
}

// IsEqualOrDescendantOf reports whether target is the base block
// or one of its descendants.
// Unknown hashes are never related.
func (c *Chain) IsEqualOrDescendantOf(baseHash, targetHash string) bool {
	base, ok := c.blocks[baseHash]
	if !ok {
		return false
	}

	cur, ok := c.blocks[targetHash]
	for {
		if !ok {
			return false
		}
		if targetHash == baseHash {
			return true
		}
		if cur.number <= base.number {
			return false
		}
		targetHash = cur.parent
		cur, ok = c.blocks[targetHash]
	}
}
