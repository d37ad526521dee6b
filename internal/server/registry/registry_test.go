package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/akruglov/chatline/internal/common"
)

type fakePeer struct {
	mu     sync.Mutex
	frames [][]byte
}

func (p *fakePeer) Send(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
	return true
}

func (p *fakePeer) Close() {}

func TestInsert_DuplicateAddr(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Insert("1.2.3.4:5", &fakePeer{}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := r.Insert("1.2.3.4:5", &fakePeer{}); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}
}

func TestSetToken_UnknownAddr(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.SetToken("nope", "tok"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStartsEmpty(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Insert("a", &fakePeer{}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	var tokens []string
	r.ForEach(func(addr string, p Peer, token string) {
		tokens = append(tokens, token)
	})
	if len(tokens) != 1 || tokens[0] != "" {
		t.Fatalf("expected one empty token, got %v", tokens)
	}

	if err := r.SetToken("a", "tok"); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	tokens = tokens[:0]
	r.ForEach(func(addr string, p Peer, token string) {
		tokens = append(tokens, token)
	})
	if len(tokens) != 1 || tokens[0] != "tok" {
		t.Fatalf("expected updated token, got %v", tokens)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Insert("a", &fakePeer{})

	if !r.Remove("a") {
		t.Fatal("Remove should report true for a live entry")
	}
	if r.Remove("a") {
		t.Fatal("Remove should report false for a missing entry")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestConcurrentMutationAndIteration(t *testing.T) {
	t.Parallel()

	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("10.0.0.%d:1", i)
			if err := r.Insert(addr, &fakePeer{}); err != nil {
				t.Errorf("Insert error: %v", err)
				return
			}
			_ = r.SetToken(addr, "tok")
			r.ForEach(func(addr string, p Peer, token string) {
				// Entries must never be observed half-initialized.
				if p == nil {
					t.Error("nil peer observed during iteration")
				}
			})
			if i%2 == 0 {
				r.Remove(addr)
			}
		}(i)
	}
	wg.Wait()

	if got := r.Len(); got != 25 {
		t.Fatalf("expected 25 surviving entries, got %d", got)
	}
}
