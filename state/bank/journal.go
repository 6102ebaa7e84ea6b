package bank

// journal records undo closures so that any prefix of state changes can be
// rolled back, mirroring the revision model of an EVM state database.
type journal struct {
	entries   []func()
	revisions []int
	released  []bool
}

func (j *journal) append(undo func()) {
	j.entries = append(j.entries, undo)
}

func (j *journal) snapshot() int {
	j.revisions = append(j.revisions, len(j.entries))
	j.released = append(j.released, false)
	return len(j.revisions) - 1
}

func (j *journal) revert(id int) bool {
	if id < 0 || id >= len(j.revisions) {
		return false
	}
	mark := j.revisions[id]
	for i := len(j.entries) - 1; i >= mark; i-- {
		j.entries[i]()
	}
	j.entries = j.entries[:mark]
	j.revisions = j.revisions[:id]
	j.released = j.released[:id]
	return true
}

// discard releases revision id. Released revisions are popped from the top of
// the stack; once none remain the undo entries are dropped. A revision still
// held below keeps every entry recorded after it.
func (j *journal) discard(id int) {
	if id < 0 || id >= len(j.revisions) {
		return
	}
	j.released[id] = true
	n := len(j.revisions)
	for n > 0 && j.released[n-1] {
		n--
	}
	j.revisions = j.revisions[:n]
	j.released = j.released[:n]
	if n == 0 {
		j.entries = nil
	}
}

func (j *journal) reset() {
	j.entries = nil
	j.revisions = nil
	j.released = nil
}

// Snapshot returns a revision identifier for the current state.
func (b *Bank) Snapshot() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.journal.snapshot()
}

// RevertToSnapshot undoes every change made after the snapshot was taken.
// Unknown identifiers are ignored.
func (b *Bank) RevertToSnapshot(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal.revert(id)
}

// DiscardSnapshot releases a snapshot whose operation succeeded. Once no
// snapshot is outstanding the undo history is freed, so engines that discard
// their snapshots keep the journal bounded without calling Finalise.
func (b *Bank) DiscardSnapshot(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal.discard(id)
}

// Finalise drops the journal and recorded logs, making the current state
// permanent.
func (b *Bank) Finalise() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal.reset()
	b.logs = nil
}
