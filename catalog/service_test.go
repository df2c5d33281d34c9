package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctctracker/youtube"
)

// receive waits for one value from ch or fails the test.
func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without a value")
		}
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	var zero T
	return zero
}

func TestLoadCompletionFlags(t *testing.T) {
	store := newMemStore()
	store.flags["a"] = true
	store.flags["b"] = false
	svc := NewService(store, nil, nil)

	ch := svc.LoadCompletionFlags(context.Background())
	if cap(ch) != 1 {
		t.Errorf("channel capacity = %d, want 1", cap(ch))
	}
	res := receive(t, ch)
	if res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}
	if len(res.Flags) != 2 || !res.Flags["a"] || res.Flags["b"] {
		t.Errorf("Flags = %v", res.Flags)
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed after delivery")
	}
}

func TestLoadCompletionFlagsError(t *testing.T) {
	store := newMemStore()
	store.failFlags = errors.New("no such table")
	svc := NewService(store, nil, nil)

	res := receive(t, svc.LoadCompletionFlags(context.Background()))
	if res.Err == nil || res.Flags != nil {
		t.Errorf("result = %+v, want error and no flags", res)
	}
}

func TestLoadCatalog(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 2), video("b", 50, 1))
	store := newMemStore()
	svc := NewService(store, NewSynchronizer(client, store, "UCabc", nil), nil)

	res := receive(t, svc.LoadCatalog(context.Background(), Frontier{}))
	svc.Wait()

	if len(res.Videos) != 2 || res.Videos[0].ID != "b" {
		t.Errorf("Videos = %v", ids(res.Videos))
	}
	if res.Result == nil || res.Result.Persisted != 2 {
		t.Errorf("Result = %+v", res.Result)
	}
}

func TestLoadCatalogDoesNotShareFrontier(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 1))
	store := newMemStore()
	svc := NewService(store, NewSynchronizer(client, store, "UCabc", nil), nil)

	frontier := Frontier{}
	res := receive(t, svc.LoadCatalog(context.Background(), frontier))

	if len(frontier) != 0 {
		t.Errorf("caller frontier mutated: %v", frontier)
	}
	if !res.Result.Frontier.Contains("a") {
		t.Error("result frontier missing persisted id")
	}
}

func TestSetCompletionFlag(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc.SetCompletionFlag(ctx, youtube.VideoID("a"), true)
	cancel()
	svc.SetCompletionFlag(context.Background(), youtube.VideoID("b"), false)
	svc.Wait()

	if !store.flags["a"] {
		t.Error("flag a not written")
	}
	if done, ok := store.flags["b"]; !ok || done {
		t.Error("flag b not written as false")
	}
}

func TestFlagsFrontier(t *testing.T) {
	flags := Flags{"a": true, "b": false}
	frontier := flags.Frontier()

	if len(frontier) != 2 || !frontier.Contains("a") || !frontier.Contains("b") {
		t.Errorf("Frontier() = %v", frontier)
	}

	clone := flags.Clone()
	clone["c"] = true
	if _, ok := flags["c"]; ok {
		t.Error("Clone shares storage with the original")
	}

	var nilFrontier Frontier
	if got := nilFrontier.Clone(); got == nil || len(got) != 0 {
		t.Errorf("nil Clone() = %v", got)
	}
}
