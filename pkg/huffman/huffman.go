// Package huffman builds length-limited prefix codes for byte alphabets.
//
// Tree construction merges the two lightest nodes until one root remains.
// Nodes of equal weight are taken in creation order, with leaves created in
// ascending byte order, so the resulting codes are deterministic. When the
// natural tree is deeper than the requested limit, code lengths are
// redistributed and canonical codes are assigned instead.
package huffman

import (
	"cmp"
	"container/heap"
	"slices"
)

// DefaultMaxDepth is the longest code accepted by the on-ROM decoders.
const DefaultMaxDepth = 16

// Frequencies counts byte occurrences.
type Frequencies [256]uint64

// AddString counts every byte of s.
func (f *Frequencies) AddString(s string) {
	for i := range len(s) {
		f[s[i]]++
	}
}

// Add counts b once.
func (f *Frequencies) Add(b byte) {
	f[b]++
}

// Record is one entry of the code table.
type Record struct {
	Code   uint32
	Length uint
	Value  byte
}

// Codebook is the result of encoding a frequency table.
type Codebook struct {
	// Records is ordered by code, then length, then value.
	Records []Record
	// NaturalDepth is the depth of the unconstrained tree.
	NaturalDepth int
	// Limited is set when lengths were redistributed to fit the depth limit.
	Limited bool

	lookup [256]int
}

// Lookup returns the record for b.
func (cb *Codebook) Lookup(b byte) (Record, bool) {
	idx := cb.lookup[b]
	if idx == 0 {
		return Record{}, false
	}

	return cb.Records[idx-1], true
}

// MaxLength returns the longest code length in the book.
func (cb *Codebook) MaxLength() uint {
	var longest uint

	for _, rec := range cb.Records {
		longest = max(longest, rec.Length)
	}

	return longest
}

// Cost returns the total number of bits needed to encode freq with this book.
func (cb *Codebook) Cost(freq *Frequencies) uint64 {
	var bits uint64

	for _, rec := range cb.Records {
		bits += freq[rec.Value] * uint64(rec.Length)
	}

	return bits
}

type node struct {
	weight uint64
	seq    int
	value  byte
	left   *node
	right  *node
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

type queue []*node

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].weight != q[j].weight {
		return q[i].weight < q[j].weight
	}

	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*node)) }

func (q *queue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]

	return n
}

// Encode builds a codebook for freq with no code longer than maxDepth.
// Bytes with zero frequency get no code. A single used byte gets a
// zero-length code. A maxDepth below 1 selects DefaultMaxDepth. When the
// alphabet cannot fit in maxDepth bits the natural lengths are kept.
func Encode(freq *Frequencies, maxDepth int) *Codebook {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}

	cb := &Codebook{}

	root := buildTree(freq)
	if root == nil {
		return cb
	}

	var leaves []Record

	walk(root, 0, 0, &leaves)

	for _, leaf := range leaves {
		cb.NaturalDepth = max(cb.NaturalDepth, int(leaf.Length))
	}

	fits := maxDepth >= 8 || len(leaves) <= 1<<maxDepth

	if cb.NaturalDepth > maxDepth && fits {
		leaves = limitLengths(leaves, maxDepth)
		cb.Limited = true
	}

	slices.SortFunc(leaves, compareRecords)

	cb.Records = leaves
	for i, rec := range leaves {
		cb.lookup[rec.Value] = i + 1
	}

	return cb
}

func buildTree(freq *Frequencies) *node {
	q := queue{}
	seq := 0

	for b, weight := range freq {
		if weight == 0 {
			continue
		}

		q = append(q, &node{weight: weight, seq: seq, value: byte(b)})
		seq++
	}

	if len(q) == 0 {
		return nil
	}

	heap.Init(&q)

	for q.Len() > 1 {
		left := heap.Pop(&q).(*node)
		right := heap.Pop(&q).(*node)

		heap.Push(&q, &node{weight: left.weight + right.weight, seq: seq, left: left, right: right})
		seq++
	}

	return q[0]
}

// walk assigns left = 0 and right = 1 codes in left-to-right leaf order.
func walk(n *node, code uint32, depth uint, out *[]Record) {
	if n.isLeaf() {
		*out = append(*out, Record{Code: code, Length: depth, Value: n.value})

		return
	}

	walk(n.left, code<<1, depth+1, out)
	walk(n.right, code<<1|1, depth+1, out)
}

// limitLengths moves leaves deeper than maxDepth up the tree, keeping the
// Kraft sum at one, and then assigns canonical codes. Shorter natural codes
// keep shorter lengths.
func limitLengths(leaves []Record, maxDepth int) []Record {
	natural := 0
	for _, leaf := range leaves {
		natural = max(natural, int(leaf.Length))
	}

	counts := make([]int, natural+1)
	for _, leaf := range leaves {
		counts[leaf.Length]++
	}

	for depth := natural; depth > maxDepth; depth-- {
		for counts[depth] > 0 {
			j := depth - 2
			for counts[j] == 0 {
				j--
			}

			counts[depth] -= 2
			counts[depth-1]++
			counts[j+1] += 2
			counts[j]--
		}
	}

	ordered := slices.Clone(leaves)
	slices.SortStableFunc(ordered, func(a, b Record) int {
		return cmp.Compare(a.Length, b.Length)
	})

	idx := 0

	for length := 1; length <= maxDepth; length++ {
		for range counts[length] {
			ordered[idx].Length = uint(length)
			idx++
		}
	}

	assignCanonical(ordered)

	return ordered
}

// assignCanonical gives consecutive codes to records sorted by length.
func assignCanonical(records []Record) {
	var code uint32

	prev := uint(0)

	for i := range records {
		if prev != 0 {
			code++
		}

		code <<= records[i].Length - prev
		prev = records[i].Length
		records[i].Code = code
	}
}

func compareRecords(a, b Record) int {
	if c := cmp.Compare(a.Code, b.Code); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Length, b.Length); c != 0 {
		return c
	}

	return cmp.Compare(a.Value, b.Value)
}
