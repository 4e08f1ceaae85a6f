package merkle

import (
	"errors"
	"time"

	"github.com/ppiankov/alethia/internal/model"
)

// ErrIndexOutOfRange reports a proof request for a leaf the tree does not
// hold. This is the only hard failure the package surfaces; it is returned
// before any hashing happens.
var ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")

// Tree is a binary hash tree over an ordered batch of claim texts.
// levels[0] holds the leaf hashes in input order; the last level holds the
// root alone.
type Tree struct {
	levels [][]model.Hash
}

// Build hashes the texts in input order and assembles the tree bottom-up,
// pairing left to right. An odd level's last node pairs with itself.
// Returns nil for an empty batch: no claims means no commitment, not an
// error.
func Build(texts []string) *Tree {
	if len(texts) == 0 {
		return nil
	}

	leaves := make([]model.Hash, len(texts))
	for i, t := range texts {
		leaves[i] = HashText(t)
	}

	levels := [][]model.Hash{leaves}
	for current := leaves; len(current) > 1; {
		next := make([]model.Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			left := current[i]
			right := left // orphan pairs with itself
			if i+1 < len(current) {
				right = current[i+1]
			}
			next = append(next, parentHash(left, right))
		}
		levels = append(levels, next)
		current = next
	}

	return &Tree{levels: levels}
}

// parentHash hashes the concatenated hex strings of the two children
func parentHash(left, right model.Hash) model.Hash {
	return HashText(string(left) + string(right))
}

// Root returns the commitment root
func (t *Tree) Root() model.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of committed texts
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Proof returns the inclusion proof for leaf index, ordered leaf to root:
// one step per level below the root, each carrying the sibling hash and the
// side the sibling sits on. Where the node is an unpaired orphan the step
// carries the node's own hash tagged RIGHT, so plain replay reproduces the
// duplicated pairing with no special cases.
func (t *Tree) Proof(index int) ([]model.ProofStep, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, ErrIndexOutOfRange
	}

	proof := make([]model.ProofStep, 0, len(t.levels)-1)
	pos := index
	for _, level := range t.levels[:len(t.levels)-1] {
		if pos%2 == 0 {
			sibling := pos // orphan: virtual sibling is the node itself
			if pos+1 < len(level) {
				sibling = pos + 1
			}
			proof = append(proof, model.ProofStep{SiblingHash: level[sibling], Position: model.SideRight})
		} else {
			proof = append(proof, model.ProofStep{SiblingHash: level[pos-1], Position: model.SideLeft})
		}
		pos /= 2
	}

	return proof, nil
}

// Commit builds the tree over the texts and returns the commitment plus an
// inclusion proof for every leaf. An empty batch yields (nil, nil, nil): a
// distinct "no claims" state the caller handles, not an error.
func Commit(texts []string) (*model.Commitment, [][]model.ProofStep, error) {
	tree := Build(texts)
	if tree == nil {
		return nil, nil, nil
	}

	proofs := make([][]model.ProofStep, tree.LeafCount())
	for i := range proofs {
		p, err := tree.Proof(i)
		if err != nil {
			return nil, nil, err
		}
		proofs[i] = p
	}

	commitment := &model.Commitment{
		Root:       tree.Root(),
		Timestamp:  time.Now().UTC(),
		ClaimCount: tree.LeafCount(),
	}

	return commitment, proofs, nil
}
