package trigger

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLocks сериализует обновления статистики одного триггера.
// Мьютексы создаются лениво и не освобождаются: количество триггеров
// в системе ограничено.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock захватывает мьютекс ключа и возвращает функцию освобождения.
func (k *keyedLocks) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	lock, exists := k.locks[id]
	if !exists {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
