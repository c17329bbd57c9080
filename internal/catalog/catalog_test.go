package catalog

import (
	"errors"
	"image"
	"path/filepath"
	"testing"
)

// setupTestCatalog creates an in-memory SQLite catalog for testing
func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	c := &Catalog{path: ":memory:"}
	var err error
	c.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := c.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return c
}

func TestRecordPages(t *testing.T) {
	c := setupTestCatalog(t)
	defer c.Close()

	runID, err := c.BeginRun("chapter1", "contour")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	pages := []PageRecord{
		{
			Index: 0,
			Name:  "p01",
			Panels: []PanelRecord{
				{Seq: 0, Rect: image.Rect(0, 0, 100, 50), File: "p01_00.png"},
				{Seq: 1, Rect: image.Rect(0, 60, 100, 120), File: "p01_01.png"},
			},
		},
		{Index: 1, Name: "p02", Err: errors.New("decode page p02.png: unexpected EOF")},
		{Index: 2, Name: "p03", Panels: []PanelRecord{{Seq: 0, Rect: image.Rect(5, 5, 50, 50)}}},
	}
	for _, p := range pages {
		if err := c.RecordPage(runID, p); err != nil {
			t.Fatalf("RecordPage(%s) failed: %v", p.Name, err)
		}
	}

	stats, err := c.Stats(runID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pages != 3 || stats.Failed != 1 || stats.Panels != 3 {
		t.Errorf("expected 3/1/3, got %+v", stats)
	}

	failed, err := c.FailedPages(runID)
	if err != nil {
		t.Fatalf("FailedPages failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Name != "p02" || failed[0].Error != "decode page p02.png: unexpected EOF" {
		t.Errorf("unexpected failures: %+v", failed)
	}

	var w, h int
	err = c.QueryRow(`SELECT width, height FROM panels WHERE file_path = ?`, "p01_01.png").Scan(&w, &h)
	if err != nil {
		t.Fatalf("panel lookup failed: %v", err)
	}
	if w != 100 || h != 60 {
		t.Errorf("expected 100x60, got %dx%d", w, h)
	}
}

func TestRecordPageTwiceFails(t *testing.T) {
	c := setupTestCatalog(t)
	defer c.Close()

	runID, err := c.BeginRun("src", "projection")
	if err != nil {
		t.Fatal(err)
	}
	rec := PageRecord{Index: 0, Name: "p01"}
	if err := c.RecordPage(runID, rec); err != nil {
		t.Fatal(err)
	}
	if err := c.RecordPage(runID, rec); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestFailedPagesKeepsOrderAndDuplicates(t *testing.T) {
	c := setupTestCatalog(t)
	defer c.Close()

	runID, err := c.BeginRun("src", "contour")
	if err != nil {
		t.Fatal(err)
	}
	// Recorded out of order and under one name, as two files sharing a stem would be
	recs := []PageRecord{
		{Index: 3, Name: "cover", Err: errors.New("bad bmp")},
		{Index: 1, Name: "cover", Err: errors.New("bad png")},
		{Index: 2, Name: "p02"},
	}
	for _, rec := range recs {
		if err := c.RecordPage(runID, rec); err != nil {
			t.Fatal(err)
		}
	}

	failed, err := c.FailedPages(runID)
	if err != nil {
		t.Fatalf("FailedPages failed: %v", err)
	}
	want := []PageFailure{
		{Index: 1, Name: "cover", Error: "bad png"},
		{Index: 3, Name: "cover", Error: "bad bmp"},
	}
	if len(failed) != len(want) {
		t.Fatalf("expected %d failures, got %+v", len(want), failed)
	}
	for i := range want {
		if failed[i] != want[i] {
			t.Errorf("failure %d: expected %+v, got %+v", i, want[i], failed[i])
		}
	}
}

func TestRunsAreSeparate(t *testing.T) {
	c := setupTestCatalog(t)
	defer c.Close()

	a, _ := c.BeginRun("src", "contour")
	b, _ := c.BeginRun("src", "projection")
	if a == b {
		t.Fatal("run ids must differ")
	}
	if err := c.RecordPage(a, PageRecord{Index: 0, Name: "p01"}); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Stats(b)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pages != 0 {
		t.Errorf("expected empty run, got %+v", stats)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if c.Path() != path {
		t.Errorf("expected path %s, got %s", path, c.Path())
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening an existing catalog keeps the schema
	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()
	if _, err := c.BeginRun("src", "contour"); err != nil {
		t.Errorf("BeginRun after reopen failed: %v", err)
	}
}
