package dedup

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStore_AdmitOnce(t *testing.T) {
	s := NewMemoryStore()
	ok, err := s.Admit(context.Background(), "hash-a")
	if err != nil || !ok {
		t.Fatalf("first admit: ok=%v err=%v", ok, err)
	}
	ok, err = s.Admit(context.Background(), "hash-a")
	if err != nil || ok {
		t.Fatalf("second admit: ok=%v err=%v want rejected", ok, err)
	}
	ok, _ = s.Admit(context.Background(), "hash-b")
	if !ok {
		t.Fatal("different hash should be admitted")
	}
}

func TestMemoryStore_ConcurrentSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	const workers = 32

	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Admit(context.Background(), "contested")
			if err != nil {
				t.Errorf("admit: %v", err)
				return
			}
			if ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var n int
	for range wins {
		n++
	}
	if n != 1 {
		t.Fatalf("winners=%d want exactly 1", n)
	}
}
