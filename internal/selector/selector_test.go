package selector

import "testing"

func TestSelectNextSkipsProcessed(t *testing.T) {
	backlog := []Record{
		{"url": "https://youtube.com/shorts/A", "orig_url": "https://youtube.com/shorts/A"},
		{"shorts_url": "https://youtube.com/shorts/B"},
	}
	processed := Set{"https://youtube.com/shorts/A": {}}

	item, ok := SelectNext(backlog, processed, Options{})
	if !ok || item.URL != "https://youtube.com/shorts/B" || item.Index != 1 {
		t.Fatalf("unexpected selection %+v ok=%v", item, ok)
	}
}

func TestSelectNextKeyPriority(t *testing.T) {
	backlog := []Record{{
		"orig_url":   "https://youtube.com/shorts/first",
		"shorts_url": "https://youtube.com/shorts/second",
	}}
	item, ok := SelectNext(backlog, Set{}, Options{})
	if !ok || item.URL != "https://youtube.com/shorts/first" {
		t.Fatalf("expected orig_url to win, got %+v", item)
	}

	item, ok = SelectNext(backlog, Set{}, Options{URLKeys: []string{"shorts_url", "orig_url"}})
	if !ok || item.URL != "https://youtube.com/shorts/second" {
		t.Fatalf("expected configured priority to win, got %+v", item)
	}

	fallback := []Record{{"orig_url": "", "shorts_url": "https://youtube.com/shorts/fallback"}}
	item, ok = SelectNext(fallback, Set{}, Options{})
	if !ok || item.URL != "https://youtube.com/shorts/fallback" {
		t.Fatalf("expected empty orig_url to fall back, got %+v", item)
	}
}

func TestSelectNextRequiresMarker(t *testing.T) {
	backlog := []Record{
		{"orig_url": "https://youtube.com/watch?v=long"},
		{"orig_url": 42},
		{},
		{"orig_url": "https://youtube.com/shorts/C"},
	}
	item, ok := SelectNext(backlog, Set{}, Options{})
	if !ok || item.URL != "https://youtube.com/shorts/C" || item.Index != 3 {
		t.Fatalf("unexpected selection %+v", item)
	}
}

func TestSelectNextNothingToDo(t *testing.T) {
	backlog := []Record{{"orig_url": "https://youtube.com/shorts/A"}}
	if _, ok := SelectNext(backlog, Set{"https://youtube.com/shorts/A": {}}, Options{}); ok {
		t.Fatal("expected no selection")
	}
	if _, ok := SelectNext(nil, nil, Options{}); ok {
		t.Fatal("expected no selection for empty backlog")
	}
}

func TestSelectNextIsIdempotent(t *testing.T) {
	backlog := []Record{{"orig_url": "https://youtube.com/shorts/A"}, {"orig_url": "https://youtube.com/shorts/B"}}
	processed := Set{}
	first, _ := SelectNext(backlog, processed, Options{})
	second, _ := SelectNext(backlog, processed, Options{})
	if first != second {
		t.Fatalf("expected identical selections, got %+v and %+v", first, second)
	}
	if len(processed) != 0 {
		t.Fatal("selection must not mutate the processed set")
	}
}

func TestPending(t *testing.T) {
	backlog := []Record{
		{"orig_url": "https://youtube.com/shorts/A"},
		{"orig_url": "https://youtube.com/shorts/A"},
		{"orig_url": "https://youtube.com/shorts/B"},
		{"orig_url": "https://example.com/x"},
	}
	if got := Pending(backlog, Set{"https://youtube.com/shorts/B": {}}, Options{}); got != 1 {
		t.Fatalf("expected 1 pending, got %d", got)
	}
}
