// Package dsa holds the small data structures used by the ranking paths.
package dsa

// ─── Bounded Top-K (Min-Heap) ───────────────────────────────────────────────
//
// Keeps the k best items seen so far. The root is the worst kept item, so a
// candidate only costs a comparison unless it beats the root.
//
//   Push:    O(log k)
//   Sorted:  O(k log k)

// TopK is a bounded min-heap ordered by better. Not safe for concurrent use.
type TopK[T any] struct {
	k      int
	heap   []T
	better func(a, b T) bool // true when a ranks before b
}

// NewTopK returns an empty heap keeping at most k items. k <= 0 keeps none.
func NewTopK[T any](k int, better func(a, b T) bool) *TopK[T] {
	if k < 0 {
		k = 0
	}
	return &TopK[T]{
		k:      k,
		heap:   make([]T, 0, k),
		better: better,
	}
}

// Push offers an item. Reports whether it was kept.
func (h *TopK[T]) Push(item T) bool {
	if h.k == 0 {
		return false
	}
	if len(h.heap) < h.k {
		h.heap = append(h.heap, item)
		h.siftUp(len(h.heap) - 1)
		return true
	}
	if !h.better(item, h.heap[0]) {
		return false
	}
	h.heap[0] = item
	h.siftDown(0)
	return true
}

// Len returns the number of kept items.
func (h *TopK[T]) Len() int {
	return len(h.heap)
}

// Sorted drains the heap and returns the kept items best first.
func (h *TopK[T]) Sorted() []T {
	out := make([]T, len(h.heap))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out
}

func (h *TopK[T]) pop() T {
	top := h.heap[0]
	last := len(h.heap) - 1
	h.heap[0] = h.heap[last]
	h.heap = h.heap[:last]
	if len(h.heap) > 0 {
		h.siftDown(0)
	}
	return top
}

// less orders the min-heap: the worse item sits closer to the root.
func (h *TopK[T]) less(i, j int) bool {
	return h.better(h.heap[j], h.heap[i])
}

// siftUp restores heap property after insertion.
func (h *TopK[T]) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if !h.less(idx, parent) {
			break
		}
		h.heap[idx], h.heap[parent] = h.heap[parent], h.heap[idx]
		idx = parent
	}
}

// siftDown restores heap property after replacing the root.
func (h *TopK[T]) siftDown(idx int) {
	n := len(h.heap)
	for {
		smallest := idx
		left := 2*idx + 1
		right := 2*idx + 2

		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == idx {
			break
		}
		h.heap[idx], h.heap[smallest] = h.heap[smallest], h.heap[idx]
		idx = smallest
	}
}
