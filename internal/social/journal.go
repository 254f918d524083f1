package social

// journal collects undo steps for the operation in flight. Every write to a
// table or cell records how to restore the previous value, so a failed
// operation can be unwound before its error is returned.
type journal struct {
	active bool
	undo   []func()
}

func (j *journal) record(step func()) {
	if j.active {
		j.undo = append(j.undo, step)
	}
}

func (j *journal) begin() {
	j.active = true
	j.undo = j.undo[:0]
}

func (j *journal) commit() {
	j.active = false
	clear(j.undo)
	j.undo = j.undo[:0]
}

func (j *journal) rollback() {
	for index := len(j.undo) - 1; index >= 0; index-- {
		j.undo[index]()
	}
	j.commit()
}

type table[K comparable, V any] struct {
	rows    map[K]V
	journal *journal
}

func newTable[K comparable, V any](j *journal) *table[K, V] {
	return &table[K, V]{rows: make(map[K]V), journal: j}
}

func (t *table[K, V]) get(key K) (V, bool) {
	value, ok := t.rows[key]
	return value, ok
}

func (t *table[K, V]) has(key K) bool {
	_, ok := t.rows[key]
	return ok
}

func (t *table[K, V]) put(key K, value V) {
	previous, existed := t.rows[key]
	t.journal.record(func() {
		if existed {
			t.rows[key] = previous
			return
		}
		delete(t.rows, key)
	})
	t.rows[key] = value
}

func (t *table[K, V]) remove(key K) {
	previous, existed := t.rows[key]
	if !existed {
		return
	}
	t.journal.record(func() {
		t.rows[key] = previous
	})
	delete(t.rows, key)
}

func (t *table[K, V]) size() int {
	return len(t.rows)
}

func (t *table[K, V]) each(visit func(K, V)) {
	for key, value := range t.rows {
		visit(key, value)
	}
}

type cell[T any] struct {
	value   T
	journal *journal
}

func (c *cell[T]) get() T {
	return c.value
}

func (c *cell[T]) set(value T) {
	previous := c.value
	c.journal.record(func() {
		c.value = previous
	})
	c.value = value
}
