package merkle

import "github.com/ppiankov/alethia/internal/model"

// VerifyProof replays an inclusion proof over a leaf hash and reports
// whether it reproduces the claimed root. Pure: no I/O, no error returns,
// never panics. A malformed step (empty sibling, unknown position tag)
// makes the proof invalid rather than raising an error, so "is this proof
// valid" is always answerable.
func VerifyProof(leafHash model.Hash, proof []model.ProofStep, claimedRoot model.Hash) bool {
	if leafHash == "" || claimedRoot == "" {
		return false
	}

	current := leafHash
	for _, step := range proof {
		if step.SiblingHash == "" {
			return false
		}
		switch step.Position {
		case model.SideLeft:
			current = parentHash(step.SiblingHash, current)
		case model.SideRight:
			current = parentHash(current, step.SiblingHash)
		default:
			return false
		}
	}

	return current == claimedRoot
}

// VerifyMembership checks that a claim text belongs to a committed batch
func VerifyMembership(leafText string, proof []model.ProofStep, root model.Hash) bool {
	return VerifyProof(HashText(leafText), proof, root)
}
