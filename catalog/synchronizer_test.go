package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"ctctracker/youtube"
)

func TestSyncFreshStore(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "p2", video("v3", 900, 3000), video("v2", 300, 2000))
	client.addPage("p2", "", video("v1", 600, 1000))
	store := newMemStore()

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), Frontier{})

	if res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}
	if res.PagesFetched != 2 || client.pageCalls != 2 {
		t.Errorf("pages = %d (calls %d), want 2", res.PagesFetched, client.pageCalls)
	}
	if res.StopReason != StopLastPage {
		t.Errorf("StopReason = %q, want %q", res.StopReason, StopLastPage)
	}
	if got, want := ids(res.Videos), []youtube.VideoID{"v2", "v1", "v3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Videos = %v, want %v (ascending duration)", got, want)
	}
	if res.NewVideos != 3 || res.Persisted != 3 {
		t.Errorf("NewVideos = %d, Persisted = %d, want 3/3", res.NewVideos, res.Persisted)
	}
	if len(store.videos) != 3 {
		t.Errorf("stored videos = %d, want 3", len(store.videos))
	}
	for _, id := range []string{"v1", "v2", "v3"} {
		done, ok := store.flags[id]
		if !ok || done {
			t.Errorf("flag %s = %v (present %v), want false", id, done, ok)
		}
	}
	if res.RunID.String() == "" {
		t.Error("RunID not set")
	}
	for _, id := range []youtube.VideoID{"v1", "v2", "v3"} {
		if !res.Frontier.Contains(id) {
			t.Errorf("result frontier missing %s", id)
		}
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "p2", video("v3", 900, 3000), video("v2", 300, 2000))
	client.addPage("p2", "", video("v1", 600, 1000))
	store := newMemStore()
	syncer := NewSynchronizer(client, store, "UCabc", nil)

	first := syncer.Sync(context.Background(), store.frontier())
	putsAfterFirst := store.putCalls
	client.pageCalls = 0

	second := syncer.Sync(context.Background(), store.frontier())

	if second.NewVideos != 0 || second.Persisted != 0 {
		t.Errorf("second pass NewVideos = %d, Persisted = %d, want 0", second.NewVideos, second.Persisted)
	}
	if store.putCalls != putsAfterFirst {
		t.Errorf("second pass wrote %d rows", store.putCalls-putsAfterFirst)
	}
	if client.pageCalls != 1 || second.StopReason != StopKnownVideo {
		t.Errorf("second pass fetched %d pages (%s), want 1 (known-video)", client.pageCalls, second.StopReason)
	}
	if !reflect.DeepEqual(first.Videos, second.Videos) {
		t.Errorf("second pass videos differ:\n%v\n%v", ids(first.Videos), ids(second.Videos))
	}
}

func TestSyncEarlyStop(t *testing.T) {
	// five pages of two videos, newest first
	client := newFakeClient()
	n := 10
	for p := 0; p < 5; p++ {
		token := ""
		if p > 0 {
			token = fmt.Sprintf("p%d", p)
		}
		next := ""
		if p < 4 {
			next = fmt.Sprintf("p%d", p+1)
		}
		client.addPage(token, next,
			video(fmt.Sprintf("v%02d", n), uint64(n*60), int64(n)),
			video(fmt.Sprintf("v%02d", n-1), uint64((n-1)*60), int64(n-1)))
		n -= 2
	}

	for k := 0; k < 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			client.pageCalls = 0
			store := newMemStore()
			// everything from page k onward is already known
			frontier := Frontier{}
			for id := 10 - 2*k; id >= 1; id-- {
				vid := fmt.Sprintf("v%02d", id)
				frontier.Add(youtube.VideoID(vid))
				store.flags[vid] = false
				store.videos[vid] = *toRow(client.videos[youtube.VideoID(vid)])
			}

			res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), frontier)

			if client.pageCalls != k+1 {
				t.Errorf("page calls = %d, want %d", client.pageCalls, k+1)
			}
			if res.StopReason != StopKnownVideo {
				t.Errorf("StopReason = %q, want known-video", res.StopReason)
			}
			if res.NewVideos != 2*k {
				t.Errorf("NewVideos = %d, want %d", res.NewVideos, 2*k)
			}
			if len(res.Videos) != 10 {
				t.Errorf("Videos = %d, want 10", len(res.Videos))
			}
		})
	}
}

func TestSyncProcessesMixedPage(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "p2", video("new", 100, 2), video("old", 200, 1))
	client.addPage("p2", "", video("older", 300, 0))
	store := newMemStore()
	store.flags["old"] = true
	store.videos["old"] = *toRow(client.videos["old"])

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), store.frontier())

	if client.pageCalls != 1 {
		t.Errorf("page calls = %d, want 1", client.pageCalls)
	}
	if got := ids(res.Videos); !reflect.DeepEqual(got, []youtube.VideoID{"new", "old"}) {
		t.Errorf("Videos = %v, want [new old]", got)
	}
	if !store.flags["old"] {
		t.Error("existing completed flag was overwritten")
	}
	if done, ok := store.flags["new"]; !ok || done {
		t.Error("new video flag not created as false")
	}
	for _, id := range client.requestedIDs {
		if id == "old" {
			t.Error("details requested for a known video")
		}
	}
}

func TestSyncDeduplicatesStoredRows(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 2))
	store := newMemStore()
	// row persisted earlier but its flag write failed
	stale := video("a", 100, 2)
	stale.Title = "stale title"
	store.videos["a"] = *toRow(stale)

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), store.frontier())

	if len(res.Videos) != 1 {
		t.Fatalf("Videos = %v, want one entry", ids(res.Videos))
	}
	if res.Videos[0].Title != "Puzzle a" {
		t.Errorf("Title = %q, want the API copy", res.Videos[0].Title)
	}
	if _, ok := store.flags["a"]; !ok {
		t.Error("flag not created for the reconciled row")
	}
}

func TestSyncPageErrorKeepsPartialResults(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "p2", video("v2", 100, 2))
	pageErr := &youtube.TransportError{Op: "playlistItems.list", Err: errors.New("connection reset")}
	client.pageErrs["p2"] = pageErr
	store := newMemStore()
	store.videos["cached"] = *toRow(video("cached", 50, 0))
	store.flags["cached"] = true

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), store.frontier())

	if res.StopReason != StopPageError {
		t.Errorf("StopReason = %q, want page-error", res.StopReason)
	}
	if !errors.Is(res.Err, pageErr) {
		t.Errorf("Err = %v, want the page error", res.Err)
	}
	if got := ids(res.Videos); !reflect.DeepEqual(got, []youtube.VideoID{"cached", "v2"}) {
		t.Errorf("Videos = %v, want [cached v2]", got)
	}
	if _, ok := store.flags["v2"]; !ok {
		t.Error("video from the successful page was not persisted")
	}
}

func TestSyncCredentialError(t *testing.T) {
	client := newFakeClient()
	client.pageErrs[""] = &youtube.APIError{Op: "playlistItems.list", Code: 400, Reason: "keyInvalid"}
	store := newMemStore()
	store.videos["cached"] = *toRow(video("cached", 50, 0))
	store.flags["cached"] = false

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), store.frontier())

	if !errors.Is(res.Err, youtube.ErrInvalidCredential) {
		t.Errorf("Err = %v, want ErrInvalidCredential", res.Err)
	}
	if len(res.Videos) != 1 || res.PagesFetched != 0 {
		t.Errorf("Videos = %v, PagesFetched = %d", ids(res.Videos), res.PagesFetched)
	}
}

func TestSyncDetailFailureKeepsSurvivors(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 3), video("b", 200, 2), video("c", 300, 1))
	client.failDetails["b"] = true
	client.detailErr = &youtube.APIError{Op: "videos.list", Code: 403, Reason: "quotaExceeded"}
	store := newMemStore()

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), Frontier{})

	if !errors.Is(res.Err, youtube.ErrQuotaExceeded) {
		t.Errorf("Err = %v, want ErrQuotaExceeded", res.Err)
	}
	if got := ids(res.Videos); !reflect.DeepEqual(got, []youtube.VideoID{"a", "c"}) {
		t.Errorf("Videos = %v, want [a c]", got)
	}
	if _, ok := store.flags["b"]; ok {
		t.Error("flag created for a video whose details failed")
	}
}

func TestSyncDropsDenylisted(t *testing.T) {
	client := newFakeClient()
	wordle := video("w", 100, 2)
	wordle.Title = "Wordle 500"
	client.addPage("", "", wordle, video("s", 200, 1))
	store := newMemStore()

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), Frontier{})

	if got := ids(res.Videos); !reflect.DeepEqual(got, []youtube.VideoID{"s"}) {
		t.Errorf("Videos = %v, want [s]", got)
	}
	if res.Err != nil {
		t.Errorf("denylisted titles must not be reported, Err = %v", res.Err)
	}
}

func TestSyncPersistFailureRetriedNextPass(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 2), video("b", 200, 1))
	store := newMemStore()
	store.failPut["a"] = true
	syncer := NewSynchronizer(client, store, "UCabc", nil)

	first := syncer.Sync(context.Background(), store.frontier())

	if first.Persisted != 1 || first.NewVideos != 2 {
		t.Errorf("Persisted = %d, NewVideos = %d, want 1/2", first.Persisted, first.NewVideos)
	}
	if _, ok := store.flags["a"]; ok {
		t.Error("flag written although the video row failed")
	}
	if first.Frontier.Contains("a") || !first.Frontier.Contains("b") {
		t.Errorf("Frontier = %v, want only b", first.Frontier)
	}
	if first.Err == nil {
		t.Error("store failure not reported")
	}

	delete(store.failPut, "a")
	second := syncer.Sync(context.Background(), first.Frontier)

	if second.Persisted != 1 {
		t.Errorf("second pass Persisted = %d, want 1", second.Persisted)
	}
	if _, ok := store.flags["a"]; !ok {
		t.Error("video a not persisted on retry")
	}
}

func TestSyncStoreListFailure(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 1))
	store := newMemStore()
	store.failList = errors.New("database is closed")

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), Frontier{})

	if len(res.Videos) != 1 || res.Err == nil {
		t.Errorf("Videos = %v, Err = %v", ids(res.Videos), res.Err)
	}
}

func TestSyncSortIsStable(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("c", 60, 3), video("a", 60, 2), video("b", 30, 1))
	store := newMemStore()

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), Frontier{})

	if got := ids(res.Videos); !reflect.DeepEqual(got, []youtube.VideoID{"b", "c", "a"}) {
		t.Errorf("Videos = %v, want [b c a]", got)
	}
	if !sort.SliceIsSorted(res.Videos, func(i, j int) bool {
		return res.Videos[i].DurationSeconds < res.Videos[j].DurationSeconds
	}) {
		t.Error("videos not sorted by duration")
	}
}

func TestSyncStoredLinksRecomputed(t *testing.T) {
	client := newFakeClient()
	client.addPage("", "", video("a", 100, 1))
	store := newMemStore()
	store.videos["a"] = *toRow(video("a", 100, 1))
	store.flags["a"] = false

	res := NewSynchronizer(client, store, "UCabc", nil).Sync(context.Background(), store.frontier())

	if len(res.Videos) != 1 {
		t.Fatalf("Videos = %v", ids(res.Videos))
	}
	if want := []string{"https://sudokupad.app/a"}; !reflect.DeepEqual(res.Videos[0].ExtractedLinks, want) {
		t.Errorf("ExtractedLinks = %v, want %v", res.Videos[0].ExtractedLinks, want)
	}
}
