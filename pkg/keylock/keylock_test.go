package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := New()
	const n = 50

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("user-1")
			defer kl.Unlock("user-1")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, n, counter)
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := New()

	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Lock("b")
		kl.Unlock("b")
		close(done)
	}()
	// Lock on "b" must not wait for "a".
	<-done
	kl.Unlock("a")
}

func TestKeyLockEntryCleanup(t *testing.T) {
	kl := New()
	kl.Lock("x")
	kl.Unlock("x")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	assert.Empty(t, kl.locks)
}
