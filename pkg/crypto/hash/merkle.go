package hash

import (
	"errors"

	"github.com/n3-go/n3node/pkg/util"
)

// merkleTreeNode is one node of the binary Merkle tree built over
// transaction hashes.
type merkleTreeNode struct {
	hash   util.Uint256
	parent *merkleTreeNode
	left   *merkleTreeNode
	right  *merkleTreeNode
}

func (n *merkleTreeNode) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// MerkleTree represents a Merkle tree over a fixed list of leaf hashes.
type MerkleTree struct {
	root  *merkleTreeNode
	depth int
}

// NewMerkleTree builds a MerkleTree from the given leaf hashes. At least
// one hash is required.
func NewMerkleTree(hashes []util.Uint256) (*MerkleTree, error) {
	if len(hashes) == 0 {
		return nil, errors.New("hash: empty hash list for merkle tree")
	}

	nodes := make([]*merkleTreeNode, len(hashes))
	for i, h := range hashes {
		nodes[i] = &merkleTreeNode{hash: h}
	}

	root := buildMerkleTree(nodes)
	return &MerkleTree{root: root, depth: 1}, nil
}

// Root returns the Merkle root hash.
func (t *MerkleTree) Root() util.Uint256 {
	return t.root.hash
}

func buildMerkleTree(leaves []*merkleTreeNode) *merkleTreeNode {
	if len(leaves) == 1 {
		return leaves[0]
	}

	parents := make([]*merkleTreeNode, (len(leaves)+1)/2)
	for i := range parents {
		parents[i] = &merkleTreeNode{}
		parents[i].left = leaves[i*2]
		leaves[i*2].parent = parents[i]

		if i*2+1 == len(leaves) {
			parents[i].right = parents[i].left
		} else {
			parents[i].right = leaves[i*2+1]
			leaves[i*2+1].parent = parents[i]
		}

		buf := make([]byte, 0, 64)
		buf = append(buf, parents[i].left.hash.BytesLE()...)
		buf = append(buf, parents[i].right.hash.BytesLE()...)
		parents[i].hash = DoubleSha256(buf)
	}

	return buildMerkleTree(parents)
}

// CalcMerkleRoot computes the Merkle root of hashes directly, without
// retaining the intermediate tree.
func CalcMerkleRoot(hashes []util.Uint256) util.Uint256 {
	if len(hashes) == 0 {
		return util.Uint256{}
	}
	tr, err := NewMerkleTree(hashes)
	if err != nil {
		return util.Uint256{}
	}
	return tr.Root()
}
