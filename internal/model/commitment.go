package model

import "time"

// Hash is a hex-encoded SHA-256 digest. Every hash in the system has this
// shape; parent hashing concatenates the hex strings of the two children.
type Hash string

// Side tells the proof verifier where a sibling sits relative to the
// current node
type Side string

const (
	SideLeft  Side = "LEFT"  // Sibling is left of the current node
	SideRight Side = "RIGHT" // Sibling is right of the current node
)

// ProofStep is one level of a Merkle inclusion proof, ordered leaf to root
type ProofStep struct {
	SiblingHash Hash `json:"sibling_hash"` // Hash of the sibling node
	Position    Side `json:"position"`     // Which side the sibling is on
}

// Commitment binds an ordered claim batch to a single root hash.
// Created exactly once per batch and immutable afterwards.
type Commitment struct {
	Root       Hash      `json:"root"`        // Merkle root over the claim texts
	Timestamp  time.Time `json:"timestamp"`   // When the commitment was created
	ClaimCount int       `json:"claim_count"` // Number of leaves under the root
}

// CommittedBatch is the persisted unit: a commitment plus the claims it
// covers, each carrying its leaf index and inclusion proof.
type CommittedBatch struct {
	Commitment Commitment `json:"commitment"`
	Claims     []Claim    `json:"claims"`
}
