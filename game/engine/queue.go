package engine

// PieceQueue is the lookahead buffer of upcoming kinds.
// Refills draw uniformly over the seven kinds with replacement, so repeats happen.
type PieceQueue struct {
	rng     RandomSource
	preview int
	items   []PieceKind
}

// NewPieceQueue creates a queue already filled to preview entries
func NewPieceQueue(rng RandomSource, preview int) *PieceQueue {
	q := &PieceQueue{
		rng:     rng,
		preview: preview,
		items:   make([]PieceKind, 0, preview+1),
	}
	q.refill()
	return q
}

// Next pops the head of the queue and tops it back up. It never blocks or fails.
func (q *PieceQueue) Next() PieceKind {
	q.refill()
	kind := q.items[0]
	q.items = append(q.items[:0], q.items[1:]...)
	q.refill()
	return kind
}

// Peek returns a copy of the upcoming kinds, head first
func (q *PieceQueue) Peek() []PieceKind {
	return append([]PieceKind(nil), q.items...)
}

// Len returns the number of buffered kinds
func (q *PieceQueue) Len() int {
	return len(q.items)
}

// Preview returns the minimum buffered length
func (q *PieceQueue) Preview() int {
	return q.preview
}

// Restore replaces the buffered kinds (used when loading a saved session).
// Invalid kinds are dropped and the queue is topped up afterwards.
func (q *PieceQueue) Restore(kinds []PieceKind) {
	q.items = q.items[:0]
	for _, k := range kinds {
		if k.Valid() {
			q.items = append(q.items, k)
		}
	}
	q.refill()
}

func (q *PieceQueue) refill() {
	for len(q.items) < q.preview {
		q.items = append(q.items, AllPieceKinds[q.rng.IntN(NumPieceKinds)])
	}
}
