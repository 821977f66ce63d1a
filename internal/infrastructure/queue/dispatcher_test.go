package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

type recordingRepo struct {
	mu       sync.Mutex
	delay    time.Duration
	appended []domain.ChatExchange
}

func (r *recordingRepo) Append(_ context.Context, ex domain.ChatExchange) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, ex)
	return nil
}

func (r *recordingRepo) ByConversation(_ context.Context, _ string) ([]domain.ChatExchange, error) {
	return nil, nil
}

func (r *recordingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appended)
}

func (r *recordingRepo) perConversation() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string)
	for _, ex := range r.appended {
		out[ex.ConversationID] = append(out[ex.ConversationID], ex.Query)
	}
	return out
}

func TestDispatcher_PreservesPerConversationOrder(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(3, repo, zerolog.Nop())
	d.Start()
	defer d.Stop()

	conversations := []string{"c1", "c2", "c3", "c4", "c5"}
	const perConversation = 10
	for i := 0; i < perConversation; i++ {
		for _, conv := range conversations {
			d.Enqueue(domain.ChatExchange{
				ConversationID: conv,
				Query:          fmt.Sprintf("%s-%d", conv, i),
			})
		}
	}

	want := len(conversations) * perConversation
	deadline := time.Now().Add(2 * time.Second)
	for repo.count() < want {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d exchanges persisted", repo.count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}

	for conv, queries := range repo.perConversation() {
		for i, q := range queries {
			if expected := fmt.Sprintf("%s-%d", conv, i); q != expected {
				t.Fatalf("conversation %s out of order at %d: got %s want %s", conv, i, q, expected)
			}
		}
	}
}

func TestDispatcher_ShardingIsDeterministic(t *testing.T) {
	d := NewDispatcher(4, &recordingRepo{}, zerolog.Nop())

	for _, conv := range []string{"c1", "alpha", "", "một-cuộc-hội-thoại"} {
		first := d.shardIndex(conv)
		for i := 0; i < 5; i++ {
			if got := d.shardIndex(conv); got != first {
				t.Fatalf("shard for %q changed: %d vs %d", conv, first, got)
			}
		}
		if first < 0 || first >= 4 {
			t.Fatalf("shard for %q out of range: %d", conv, first)
		}
	}
}

func TestDispatcher_DefaultWorkerCount(t *testing.T) {
	d := NewDispatcher(0, &recordingRepo{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_StopFlushesBufferedExchanges(t *testing.T) {
	// A slow repository keeps most of the accepted exchanges buffered when
	// Stop is called; none of them may be lost.
	repo := &recordingRepo{delay: 5 * time.Millisecond}
	d := NewDispatcher(2, repo, zerolog.Nop())
	d.Start()

	const total = 20
	for i := 0; i < total; i++ {
		d.Enqueue(domain.ChatExchange{
			ConversationID: fmt.Sprintf("c%d", i%4),
			Query:          fmt.Sprintf("q%d", i),
		})
	}

	d.Stop()

	if got := repo.count(); got != total {
		t.Fatalf("shutdown lost transcripts: persisted %d of %d", got, total)
	}
}

func TestDispatcher_EnqueueAfterStopIsDropped(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start()
	d.Stop()

	// Must neither panic nor persist.
	d.Enqueue(domain.ChatExchange{ConversationID: "c1", Query: "late"})

	if repo.count() != 0 {
		t.Fatalf("exchange accepted after Stop: %d", repo.count())
	}
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	d := NewDispatcher(1, &recordingRepo{}, zerolog.Nop())
	d.Start()
	d.Stop()
	d.Stop()
}
