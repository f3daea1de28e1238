package merkle

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// MaxDepth is the depth every sibling path is padded to before being handed
// to the withdrawal circuit.
const MaxDepth = 32

var (
	// ErrLeafNotFound is returned when building a proof for a leaf that is
	// not in the tree.
	ErrLeafNotFound = errors.New("leaf not found in tree")
	// ErrIndexOutOfRange ...
	ErrIndexOutOfRange = errors.New("leaf index out of range")
	// ErrTreeTooDeep ...
	ErrTreeTooDeep = errors.New("tree depth exceeds max depth")
)

// HashFunc combines two nodes into their parent.
type HashFunc func(left, right *big.Int) *big.Int

// Tree is a lean incremental Merkle tree. Its depth grows with the number of
// leaves and a node without a right sibling is carried to the upper level
// unchanged, so no zero hashes are ever computed.
type Tree struct {
	hash  HashFunc
	nodes [][]*big.Int
}

// NewTree returns an empty tree using the given hash function.
func NewTree(hash HashFunc) *Tree {
	return &Tree{hash: hash, nodes: [][]*big.Int{{}}}
}

// NewPoseidonTree returns an empty tree hashing nodes with Poseidon(2).
func NewPoseidonTree() *Tree {
	return NewTree(field.HashPair)
}

// Size is the number of leaves.
func (t *Tree) Size() int {
	return len(t.nodes[0])
}

// Depth is the number of levels above the leaves.
func (t *Tree) Depth() int {
	return len(t.nodes) - 1
}

// Root returns the tree root, zero for an empty tree.
func (t *Tree) Root() *big.Int {
	top := t.nodes[t.Depth()]
	if len(top) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(top[0])
}

// Insert appends a leaf and updates the path up to the root.
func (t *Tree) Insert(leaf *big.Int) {
	if t.Depth() < bits.Len(uint(t.Size())) {
		t.nodes = append(t.nodes, []*big.Int{})
	}

	node := new(big.Int).Set(leaf)
	index := t.Size()
	for level := 0; level < t.Depth(); level++ {
		t.setNode(level, index, node)
		if index&1 == 1 {
			node = t.hash(t.nodes[level][index-1], node)
		}
		index >>= 1
	}
	t.nodes[t.Depth()] = []*big.Int{node}
}

// InsertMany appends the leaves in order.
func (t *Tree) InsertMany(leaves []*big.Int) {
	for _, l := range leaves {
		t.Insert(l)
	}
}

// IndexOf returns the position of leaf, or -1 if missing.
func (t *Tree) IndexOf(leaf *big.Int) int {
	if leaf == nil {
		return -1
	}
	for i, l := range t.nodes[0] {
		if l.Cmp(leaf) == 0 {
			return i
		}
	}
	return -1
}

// GenerateProof builds the inclusion proof for the leaf at index. Only the
// siblings that exist are included, and Index encodes the left/right path
// of the included levels.
func (t *Tree) GenerateProof(index int) (*Proof, error) {
	if index < 0 || index >= t.Size() {
		return nil, ErrIndexOutOfRange
	}

	leaf := new(big.Int).Set(t.nodes[0][index])
	siblings := make([]*big.Int, 0, t.Depth())
	var path uint64
	pathLen := 0

	for level := 0; level < t.Depth(); level++ {
		isRight := index&1 == 1
		siblingIndex := index + 1
		if isRight {
			siblingIndex = index - 1
		}
		if siblingIndex < len(t.nodes[level]) {
			if isRight {
				path |= 1 << uint(pathLen)
			}
			pathLen++
			siblings = append(siblings, new(big.Int).Set(t.nodes[level][siblingIndex]))
		}
		index >>= 1
	}

	return &Proof{
		Root:     t.Root(),
		Leaf:     leaf,
		Index:    path,
		Siblings: siblings,
	}, nil
}

// GenerateProofForLeaf looks up leaf and builds its inclusion proof.
func (t *Tree) GenerateProofForLeaf(leaf *big.Int) (*Proof, error) {
	index := t.IndexOf(leaf)
	if index < 0 {
		return nil, ErrLeafNotFound
	}
	return t.GenerateProof(index)
}

// VerifyProof verifies proof with the tree's hash function.
func (t *Tree) VerifyProof(proof Proof) bool {
	return proof.Verify(t.hash)
}

func (t *Tree) setNode(level, index int, node *big.Int) {
	if index < len(t.nodes[level]) {
		t.nodes[level][index] = node
		return
	}
	t.nodes[level] = append(t.nodes[level], node)
}

// Proof is an inclusion proof for a lean incremental Merkle tree.
type Proof struct {
	Root     *big.Int
	Leaf     *big.Int
	Index    uint64
	Siblings []*big.Int
}

// Verify recomputes the root from the leaf and siblings.
func (p Proof) Verify(hash HashFunc) bool {
	if p.Root == nil || p.Leaf == nil {
		return false
	}
	node := p.Leaf
	for i, sibling := range p.Siblings {
		if (p.Index>>uint(i))&1 == 1 {
			node = hash(sibling, node)
		} else {
			node = hash(node, sibling)
		}
	}
	return node.Cmp(p.Root) == 0
}

// PaddedSiblings returns the siblings right-padded with zeros to depth.
func (p Proof) PaddedSiblings(depth int) ([]*big.Int, error) {
	if len(p.Siblings) > depth {
		return nil, fmt.Errorf("%w: %d > %d", ErrTreeTooDeep, len(p.Siblings), depth)
	}
	padded := make([]*big.Int, depth)
	for i := range padded {
		if i < len(p.Siblings) {
			padded[i] = new(big.Int).Set(p.Siblings[i])
		} else {
			padded[i] = new(big.Int)
		}
	}
	return padded, nil
}
