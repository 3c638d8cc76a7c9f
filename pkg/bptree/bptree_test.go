package bptree_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ssargent/muninn/pkg/bptree"
)

func TestTree_InsertAndSearch(t *testing.T) {
	tests := map[string]struct {
		tree     *bptree.Tree[string]
		actions  []func(tree *bptree.Tree[string])
		searches []struct {
			key      string
			expected string
			found    bool
		}
	}{
		"Insert and search keys": {
			tree: bptree.New[string](4),
			actions: []func(tree *bptree.Tree[string]){
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("a"), "one") },
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("b"), "two") },
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("c"), "three") },
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("d"), "four") },
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("e"), "five") },
			},
			searches: []struct {
				key      string
				expected string
				found    bool
			}{
				{"a", "one", true},
				{"b", "two", true},
				{"c", "three", true},
				{"d", "four", true},
				{"e", "five", true},
				{"f", "", false},
			},
		},
		"Insert duplicate keys": {
			tree: bptree.New[string](4),
			actions: []func(tree *bptree.Tree[string]){
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("a"), "one") },
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("a"), "uno") },
			},
			searches: []struct {
				key      string
				expected string
				found    bool
			}{
				{"a", "uno", true},
			},
		},
		"Search empty tree": {
			tree:    bptree.New[string](4),
			actions: []func(tree *bptree.Tree[string]){},
			searches: []struct {
				key      string
				expected string
				found    bool
			}{
				{"a", "", false},
			},
		},
		"Delete then search": {
			tree: bptree.New[string](4),
			actions: []func(tree *bptree.Tree[string]){
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("a"), "one") },
				func(tree *bptree.Tree[string]) { tree.Insert([]byte("b"), "two") },
				func(tree *bptree.Tree[string]) { tree.Delete([]byte("a")) },
			},
			searches: []struct {
				key      string
				expected string
				found    bool
			}{
				{"a", "", false},
				{"b", "two", true},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for _, action := range tt.actions {
				action(tt.tree)
			}
			for _, search := range tt.searches {
				value, found := tt.tree.Search([]byte(search.key))
				if found != search.found || value != search.expected {
					t.Errorf("Search(%q) = %v, %v; want %v, %v", search.key, value, found, search.expected, search.found)
				}
			}
		})
	}
}

func TestTree_SplitGrowth(t *testing.T) {
	tree := bptree.New[int](4)

	// Enough keys to force several levels of splits at order 4.
	const n = 1000
	for i := 0; i < n; i++ {
		tree.Insert(key(i), i)
	}

	if got := tree.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}
	if h := tree.Height(); h < 3 {
		t.Errorf("Height() = %d, want at least 3 after %d inserts at order 4", h, n)
	}
	for i := 0; i < n; i++ {
		v, found := tree.Search(key(i))
		if !found || v != i {
			t.Fatalf("Search(%s) = %d, %v; want %d, true", key(i), v, found, i)
		}
	}
}

func TestTree_ReverseInsertOrder(t *testing.T) {
	tree := bptree.New[int](4)
	for i := 99; i >= 0; i-- {
		tree.Insert(key(i), i)
	}
	for i := 0; i < 100; i++ {
		if v, found := tree.Search(key(i)); !found || v != i {
			t.Fatalf("Search(%s) = %d, %v; want %d, true", key(i), v, found, i)
		}
	}
}

func TestTree_DeleteMissing(t *testing.T) {
	tree := bptree.New[int](4)
	tree.Insert([]byte("present"), 1)

	if tree.Delete([]byte("absent")) {
		t.Error("Delete of a missing key reported true")
	}
	if !tree.Delete([]byte("present")) {
		t.Error("Delete of a present key reported false")
	}
	if tree.Delete([]byte("present")) {
		t.Error("second Delete of the same key reported true")
	}
	if got := tree.Len(); got != 0 {
		t.Errorf("Len() = %d after deleting everything, want 0", got)
	}
}

func TestTree_Ascend(t *testing.T) {
	tree := bptree.New[int](4)
	// Insert out of order; Ascend must still visit keys sorted.
	for _, i := range []int{7, 2, 9, 0, 5, 1, 8, 3, 6, 4} {
		tree.Insert(key(i), i)
	}

	var visited [][]byte
	tree.Ascend(func(k []byte, v int) bool {
		visited = append(visited, k)
		return true
	})

	if len(visited) != 10 {
		t.Fatalf("Ascend visited %d keys, want 10", len(visited))
	}
	for i := 1; i < len(visited); i++ {
		if bytes.Compare(visited[i-1], visited[i]) >= 0 {
			t.Fatalf("Ascend out of order: %s before %s", visited[i-1], visited[i])
		}
	}
}

func TestTree_AscendEarlyStop(t *testing.T) {
	tree := bptree.New[int](4)
	for i := 0; i < 20; i++ {
		tree.Insert(key(i), i)
	}

	count := 0
	tree.Ascend(func(k []byte, v int) bool {
		count++
		return count < 5
	})
	if count != 5 {
		t.Errorf("Ascend visited %d keys after early stop, want 5", count)
	}
}

func TestTree_AscendRange(t *testing.T) {
	tree := bptree.New[int](4)
	for i := 0; i < 50; i++ {
		tree.Insert(key(i), i)
	}

	tests := map[string]struct {
		start, end []byte
		want       []int
	}{
		"interior range":   {key(10), key(14), []int{10, 11, 12, 13}},
		"open start":       {nil, key(3), []int{0, 1, 2}},
		"open end":         {key(47), nil, []int{47, 48, 49}},
		"empty range":      {key(20), key(20), nil},
		"past the last":    {key(50), nil, nil},
		"single element":   {key(25), key(26), []int{25}},
		"spans leaf splits": {key(5), key(35), rangeInts(5, 35)},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got []int
			tree.AscendRange(tt.start, tt.end, func(k []byte, v int) bool {
				got = append(got, v)
				return true
			})
			if len(got) != len(tt.want) {
				t.Fatalf("AscendRange visited %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("AscendRange visited %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestTree_KeyBufferReuse(t *testing.T) {
	tree := bptree.New[int](4)

	// The same backing array is rewritten between inserts; the tree must
	// have copied each key.
	buf := make([]byte, 4)
	for i := 0; i < 10; i++ {
		copy(buf, key(i))
		tree.Insert(buf, i)
	}

	for i := 0; i < 10; i++ {
		if v, found := tree.Search(key(i)); !found || v != i {
			t.Fatalf("Search(%s) = %d, %v after buffer reuse; want %d, true", key(i), v, found, i)
		}
	}
}

func key(i int) []byte {
	return []byte(fmt.Sprintf("k%03d", i))
}

func rangeInts(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}
