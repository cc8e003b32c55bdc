package accounts

import (
	"crypto/sha256"

	"github.com/fortiblox/x1-mint/pkg/types"
)

const (
	// merkleArity is the number of children per node in the state tree.
	merkleArity = 16
)

// StateHash computes a 16-ary Merkle root over every account in db.
// Leaves are taken in pubkey order, so two stores holding the same accounts
// hash the same regardless of backend or insertion order.
func StateHash(db AccountsDB) (types.Hash, error) {
	var leaves []types.Hash
	err := db.ForEach(func(pubkey types.Pubkey, account *types.Account) error {
		leaf, err := accountLeaf(pubkey, account)
		if err != nil {
			return err
		}
		leaves = append(leaves, leaf)
		return nil
	})
	if err != nil {
		return types.ZeroHash, err
	}
	return computeMerkleRoot(leaves), nil
}

// accountLeaf hashes the pubkey followed by the stored record.
func accountLeaf(pubkey types.Pubkey, account *types.Account) (types.Hash, error) {
	record, err := SerializeAccount(account)
	if err != nil {
		return types.ZeroHash, err
	}
	h := sha256.New()
	h.Write(pubkey[:])
	h.Write(record)

	var leaf types.Hash
	copy(leaf[:], h.Sum(nil))
	return leaf, nil
}

// computeMerkleRoot computes the root of a 16-ary Merkle tree.
func computeMerkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.ZeroHash
	}

	// Process level by level until we have a single root
	for len(hashes) > 1 {
		hashes = computeNextLevel(hashes)
	}

	return hashes[0]
}

// computeNextLevel computes the next level of the 16-ary Merkle tree.
func computeNextLevel(hashes []types.Hash) []types.Hash {
	numParents := (len(hashes) + merkleArity - 1) / merkleArity
	parents := make([]types.Hash, numParents)

	for i := 0; i < numParents; i++ {
		start := i * merkleArity
		end := start + merkleArity
		if end > len(hashes) {
			end = len(hashes)
		}

		parents[i] = hashChildren(hashes[start:end])
	}

	return parents
}

// hashChildren computes the hash of a group of child nodes.
func hashChildren(children []types.Hash) types.Hash {
	if len(children) == 1 {
		return children[0]
	}

	h := sha256.New()
	for _, child := range children {
		h.Write(child[:])
	}
	var result types.Hash
	copy(result[:], h.Sum(nil))
	return result
}
