package memrepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsdevblog/moviestore/internal/domain"
)

// lockManager эксклюзивные блокировки строк, удерживаемые до конца транзакции, с обнаружением
// взаимных блокировок по графу ожидания. Жертвой становится транзакция, замыкающая цикл.
type lockManager struct {
	mu       sync.Mutex
	holders  map[string]int64   // ключ строки -> транзакция-владелец
	held     map[int64][]string // транзакция -> ее ключи
	waits    map[int64]string   // транзакция -> ключ, которого она ждет
	released chan struct{}      // закрывается при каждом освобождении блокировок
}

func newLockManager() *lockManager {
	return &lockManager{
		holders:  make(map[string]int64),
		held:     make(map[int64][]string),
		waits:    make(map[int64]string),
		released: make(chan struct{}),
	}
}

// acquire блокирует строку key за транзакцией txID. Если строка занята, ждет ее освобождения.
// Если ожидание замкнуло бы цикл, сразу возвращает ошибку с domain.ErrDeadlock.
func (m *lockManager) acquire(ctx context.Context, txID int64, key string) error {
	m.mu.Lock()
	for {
		holder, locked := m.holders[key]
		if !locked || holder == txID {
			if !locked {
				m.holders[key] = txID
				m.held[txID] = append(m.held[txID], key)
			}
			delete(m.waits, txID)
			m.mu.Unlock()
			return nil
		}

		if m.closesCycle(txID, holder) {
			delete(m.waits, txID)
			m.mu.Unlock()
			return fmt.Errorf("[memrepo/tx %d waiting for %s held by tx %d] %w", txID, key, holder, domain.ErrDeadlock)
		}

		m.waits[txID] = key
		released := m.released
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			m.mu.Lock()
			delete(m.waits, txID)
			m.mu.Unlock()
			return fmt.Errorf("[memrepo/tx %d waiting for %s] %w", txID, key, ctx.Err())
		case <-released:
		}
		m.mu.Lock()
	}
}

// closesCycle проходит по цепочке ожиданий начиная с holder. Вызывается под m.mu.
func (m *lockManager) closesCycle(txID, holder int64) bool {
	seen := make(map[int64]struct{})
	for current := holder; ; {
		if current == txID {
			return true
		}
		if _, ok := seen[current]; ok {
			return false
		}
		seen[current] = struct{}{}

		key, waiting := m.waits[current]
		if !waiting {
			return false
		}
		next, locked := m.holders[key]
		if !locked {
			return false
		}
		current = next
	}
}

// releaseAll освобождает все блокировки транзакции и будит ожидающих.
func (m *lockManager) releaseAll(txID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range m.held[txID] {
		if m.holders[key] == txID {
			delete(m.holders, key)
		}
	}
	delete(m.held, txID)
	delete(m.waits, txID)

	close(m.released)
	m.released = make(chan struct{})
}

func (m *lockManager) waitingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waits)
}

func (m *lockManager) heldCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holders)
}
