package memrepo

// table строки одной таблицы. Изменения пишутся на месте, а для каждой измененной строки хранится
// зафиксированный образ до конца транзакции-писателя: остальные транзакции читают его, то есть видят
// только зафиксированные данные (read committed). Все методы вызываются под мьютексом хранилища.
type table[K comparable, V any] struct {
	rows    map[K]V
	pending map[K]image[V]
}

// image зафиксированная версия строки, измененной живой транзакцией txID.
type image[V any] struct {
	txID    int64
	value   V
	existed bool
}

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{
		rows:    make(map[K]V),
		pending: make(map[K]image[V]),
	}
}

// get версия строки, видимая транзакции txID: своя незафиксированная или последняя зафиксированная.
func (t *table[K, V]) get(txID int64, key K) (V, bool) {
	if img, ok := t.pending[key]; ok && img.txID != txID {
		return img.value, img.existed
	}
	v, ok := t.rows[key]
	return v, ok
}

func (t *table[K, V]) has(txID int64, key K) bool {
	_, ok := t.get(txID, key)
	return ok
}

// scan обходит строки, видимые транзакции txID.
func (t *table[K, V]) scan(txID int64, fn func(key K, value V)) {
	for key, value := range t.rows {
		if img, ok := t.pending[key]; ok && img.txID != txID {
			if img.existed {
				fn(key, img.value)
			}
			continue
		}
		fn(key, value)
	}
	// строки, удаленные чужой незафиксированной транзакцией.
	for key, img := range t.pending {
		if img.txID == txID || !img.existed {
			continue
		}
		if _, ok := t.rows[key]; !ok {
			fn(key, img.value)
		}
	}
}

// keys ключи видимых транзакции txID строк, для которых match вернул true.
func (t *table[K, V]) keys(txID int64, match func(key K, value V) bool) []K {
	var keys []K
	t.scan(txID, func(key K, value V) {
		if match(key, value) {
			keys = append(keys, key)
		}
	})
	return keys
}

func (t *table[K, V]) put(tx *memTx, key K, value V) {
	prev, existed := t.rows[key]
	t.hold(tx, key, prev, existed)
	t.rows[key] = value
	tx.record(func() {
		if existed {
			t.rows[key] = prev
		} else {
			delete(t.rows, key)
		}
	})
}

func (t *table[K, V]) remove(tx *memTx, key K) {
	prev, existed := t.rows[key]
	if !existed {
		return
	}
	t.hold(tx, key, prev, existed)
	delete(t.rows, key)
	tx.record(func() { t.rows[key] = prev })
}

// hold запоминает зафиксированный образ при первой записи строки транзакцией. Две живые транзакции
// не пишут одну строку: запись всегда идет под блокировкой строки.
func (t *table[K, V]) hold(tx *memTx, key K, prev V, existed bool) {
	img, ok := t.pending[key]
	if ok {
		if img.txID != tx.id {
			panic("memrepo: row written by two live transactions")
		}
		return
	}
	t.pending[key] = image[V]{txID: tx.id, value: prev, existed: existed}
	tx.release(func() { delete(t.pending, key) })
}
