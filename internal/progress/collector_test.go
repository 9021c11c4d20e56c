package progress

import "testing"

func TestReportDedupsByKindCategoryAndTarget(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/a.html", Content: "uploaded /a.html", OK: true})
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/a.html", Content: "uploaded /a.html again", OK: true})

	lines := c.Snapshot()
	if len(lines) != 1 {
		t.Fatalf("expected 1 deduped line, got %d: %+v", len(lines), lines)
	}
	if lines[0].Count != 2 {
		t.Errorf("expected count 2, got %d", lines[0].Count)
	}
	if lines[0].Content != "uploaded /a.html again" {
		t.Errorf("expected latest content to win, got %q", lines[0].Content)
	}
}

func TestReportPreservesFirstSeenOrder(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/b.html", Content: "b"})
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/a.html", Content: "a"})
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/b.html", Content: "b again"})

	lines := c.Snapshot()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Target != "/b.html" || lines[1].Target != "/a.html" {
		t.Fatalf("expected insertion order b, a; got %q, %q", lines[0].Target, lines[1].Target)
	}
}

func TestReportDistinguishesKindsWithSameTarget(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/a.html", Content: "uploaded"})
	c.Report(Message{Kind: KindError, Category: CategoryFile, Target: "/a.html", Content: "failed"})

	lines := c.Snapshot()
	if len(lines) != 2 {
		t.Fatalf("expected 2 distinct lines for different kinds, got %d: %+v", len(lines), lines)
	}
}

func TestReportDistinguishesCategoriesWithSameTarget(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindPublish, Category: CategoryRelay, Target: "wss://relay.example", Content: "accepted", OK: true})
	c.Report(Message{Kind: KindPublish, Category: CategoryEvent, Target: "wss://relay.example", Content: "published", OK: true})

	lines := c.Snapshot()
	if len(lines) != 2 {
		t.Fatalf("expected 2 distinct lines for different categories, got %d: %+v", len(lines), lines)
	}
}

func TestSnapshotConservesTotalReports(t *testing.T) {
	c := NewCollector(nil)
	total := 0
	for i := 0; i < 5; i++ {
		c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/same.html", Content: "x"})
		total++
	}
	for i := 0; i < 3; i++ {
		c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/other.html", Content: "y"})
		total++
	}

	sum := 0
	for _, line := range c.Snapshot() {
		sum += line.Count
	}
	if sum != total {
		t.Errorf("expected snapshot counts to sum to %d reports, got %d", total, sum)
	}
}

func TestByKindFiltersAcrossCategories(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/a.html", OK: true})
	c.Report(Message{Kind: KindPublish, Category: CategoryEvent, Target: "deadbeef", OK: true})
	c.Report(Message{Kind: KindUpload, Category: CategoryServer, Target: "https://blossom.example", OK: true})

	lines := c.ByKind(KindUpload)
	if len(lines) != 2 {
		t.Fatalf("expected 2 upload-kind lines, got %d: %+v", len(lines), lines)
	}
}

func TestByCategoryFiltersAcrossKinds(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryServer, Target: "https://blossom.example", OK: true})
	c.Report(Message{Kind: KindError, Category: CategoryServer, Target: "https://blossom.example/2", OK: false})
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "/a.html", OK: true})

	lines := c.ByCategory(CategoryServer)
	if len(lines) != 2 {
		t.Fatalf("expected 2 server-category lines, got %d: %+v", len(lines), lines)
	}
}

func TestGroupByRelayTalliesAcceptedAndRejected(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindPublish, Category: CategoryRelay, Target: "wss://a.example", Content: "accepted", OK: true})
	c.Report(Message{Kind: KindPublish, Category: CategoryRelay, Target: "wss://a.example", Content: "accepted", OK: true})
	c.Report(Message{Kind: KindError, Category: CategoryRelay, Target: "wss://a.example", Content: "rejected", OK: false})
	c.Report(Message{Kind: KindPublish, Category: CategoryRelay, Target: "wss://b.example", Content: "accepted", OK: true})

	groups := c.GroupByRelay()
	if len(groups) != 2 {
		t.Fatalf("expected 2 relay groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].Relay != "wss://a.example" || groups[0].Accepted != 2 || groups[0].Rejected != 1 {
		t.Errorf("unexpected tally for a.example: %+v", groups[0])
	}
	if groups[1].Relay != "wss://b.example" || groups[1].Accepted != 1 || groups[1].Rejected != 0 {
		t.Errorf("unexpected tally for b.example: %+v", groups[1])
	}
}

func TestGroupByServerTalliesSuccessAndFailure(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryServer, Target: "https://blossom.example", OK: true})
	c.Report(Message{Kind: KindError, Category: CategoryServer, Target: "https://blossom.example", OK: false})

	groups := c.GroupByServer()
	if len(groups) != 1 || groups[0].Success != 1 || groups[0].Failure != 1 {
		t.Fatalf("unexpected server tally: %+v", groups)
	}
}

func TestGroupByFileUsesDigestTail(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindUpload, Category: CategoryFile, Target: "deadbeefcafebabe", OK: true})

	groups := c.GroupByFile()
	if len(groups) != 1 {
		t.Fatalf("expected 1 file group, got %d", len(groups))
	}
	if groups[0].DigestTail != "cafebabe" {
		t.Errorf("expected digest tail cafebabe, got %q", groups[0].DigestTail)
	}
}

func TestGroupByEventUsesIDTail(t *testing.T) {
	c := NewCollector(nil)
	c.Report(Message{Kind: KindPublish, Category: CategoryEvent, Target: "0123456789abcdef", OK: true})

	groups := c.GroupByEvent()
	if len(groups) != 1 {
		t.Fatalf("expected 1 event group, got %d", len(groups))
	}
	if groups[0].IDTail != "89abcdef" {
		t.Errorf("expected id tail 89abcdef, got %q", groups[0].IDTail)
	}
}
