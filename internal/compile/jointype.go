package compile

import (
	"sort"

	"github.com/roach88/stratum/internal/symb"
)

// Join classification labels used by the explain surface. A prefix join
// can be executed as an index range scan on the right side; a mat join
// must materialize or filter the right side.
const (
	JoinNull         = "null_join"
	JoinSingleton    = "singleton_join"
	JoinFixed        = "fixed_join"
	JoinMemPrefix    = "mem_prefix_join"
	JoinMemMat       = "mem_mat_join"
	JoinStoredPrefix = "stored_prefix_join"
	JoinStoredMat    = "stored_mat_join"
	JoinGenericMat   = "generic_mat_join"
)

// JoinIndices maps the joiner's key pairs to positions in the given
// binding orders. It fails with an unresolved-binding error if a key
// names a variable the respective side does not expose.
func (j Joiner) JoinIndices(leftBindings, rightBindings []symb.Symbol) ([]int, []int, error) {
	leftMap := offsetMap(leftBindings)
	rightMap := offsetMap(rightBindings)
	leftOut := make([]int, 0, len(j.LeftKeys))
	rightOut := make([]int, 0, len(j.RightKeys))
	for i := range j.LeftKeys {
		lpos, ok := leftMap[j.LeftKeys[i].Name]
		if !ok {
			return nil, nil, errUnresolvedBinding(j.LeftKeys[i].Name, j.LeftKeys[i].Span)
		}
		rpos, ok := rightMap[j.RightKeys[i].Name]
		if !ok {
			return nil, nil, errUnresolvedBinding(j.RightKeys[i].Name, j.RightKeys[i].Span)
		}
		leftOut = append(leftOut, lpos)
		rightOut = append(rightOut, rpos)
	}
	return leftOut, rightOut, nil
}

// AsMap returns the joiner's key pairs as a left-name to right-name map
// for diagnostics.
func (j Joiner) AsMap() map[string]string {
	out := make(map[string]string, len(j.LeftKeys))
	for i := range j.LeftKeys {
		out[j.LeftKeys[i].Name] = j.RightKeys[i].Name
	}
	return out
}

// JoinKind classifies a join by the shape of its right child, for plan
// introspection. A Reorder on the right is a programming error: reorders
// must never appear on the consuming side of a join.
func JoinKind(j *InnerJoin) (string, error) {
	switch right := j.Right.(type) {
	case *InlineFixed:
		return right.joinKind(), nil
	case *TempStoreScan:
		prefix, err := j.rightIsPrefix()
		if err != nil {
			return "", err
		}
		if prefix {
			return JoinMemPrefix, nil
		}
		return JoinMemMat, nil
	case *StoredScan:
		prefix, err := j.rightIsPrefix()
		if err != nil {
			return "", err
		}
		if prefix {
			return JoinStoredPrefix, nil
		}
		return JoinStoredMat, nil
	case *Reorder:
		return "", errJoinOnReorder(j.AtSpan)
	default:
		return JoinGenericMat, nil
	}
}

func (f *InlineFixed) joinKind() string {
	switch len(f.Data) {
	case 0:
		return JoinNull
	case 1:
		return JoinSingleton
	default:
		return JoinFixed
	}
}

func (j *InnerJoin) rightIsPrefix() (bool, error) {
	_, rightIndices, err := j.Joiner.JoinIndices(
		BindingsAfterEliminate(j.Left),
		BindingsAfterEliminate(j.Right),
	)
	if err != nil {
		return false, err
	}
	return joinIsPrefix(rightIndices), nil
}

// joinIsPrefix reports whether the right-side key positions form a
// contiguous prefix of the right side's binding order. A partial index
// match such as positions {0, 2} does not count: it is not clear that
// prefix scanning would save any computation there.
func joinIsPrefix(rightIndices []int) bool {
	indices := make([]int, len(rightIndices))
	copy(indices, rightIndices)
	sort.Ints(indices)
	for i, pos := range indices {
		if pos != i {
			return false
		}
	}
	return true
}
