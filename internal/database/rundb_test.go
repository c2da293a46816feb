package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nao1215/formcourier/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// newTestRun creates a finished run with a fixed start time.
func newTestRun(started time.Time) *model.Run {
	run := model.NewRun("rod", "sites.txt")
	run.StartedAt = started
	run.Outcomes = []model.Outcome{
		{
			URL:          "http://a.example/contact",
			Status:       model.StatusSubmitted,
			ContactURL:   "http://a.example/contact",
			FilledFields: []string{"email", "phone", "message"},
			StartedAt:    started,
			Duration:     1200 * time.Millisecond,
		},
		{URL: "http://b.example", Status: model.StatusNoForm, StartedAt: started.Add(2 * time.Second)},
		{URL: "http://c.example", Status: model.StatusError, Detail: "navigate: timeout", StartedAt: started.Add(4 * time.Second)},
	}
	run.FinishedAt = started.Add(5 * time.Second)
	return run
}

var equateTimes = cmpopts.EquateApproxTime(time.Microsecond)

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		run := newTestRun(time.Now())
		if err := db.SaveRun(context.Background(), run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		_ = db.Close()

		reopened, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		if _, err := reopened.GetRun(context.Background(), run.ID); err != nil {
			t.Errorf("GetRun() after reopen error = %v", err)
		}
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	t.Run("round trips outcomes in order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		want := newTestRun(time.Date(2026, 3, 4, 10, 0, 0, 123456789, time.UTC))

		if err := db.SaveRun(ctx, want); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}

		got, err := db.GetRun(ctx, want.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if diff := cmp.Diff(want, got, equateTimes); diff != "" {
			t.Errorf("GetRun() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("saving again replaces the run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		run := newTestRun(time.Now())

		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		run.Outcomes = run.Outcomes[:1]
		run.Interrupted = true
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("second SaveRun() error = %v", err)
		}

		got, err := db.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if len(got.Outcomes) != 1 || !got.Interrupted {
			t.Errorf("got %d outcomes, interrupted=%v; want 1 and true", len(got.Outcomes), got.Interrupted)
		}
	})

	t.Run("empty run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		run := model.NewRun("static", "empty.txt")
		run.Finish(nil, false)

		if err := db.SaveRun(context.Background(), run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		got, err := db.GetRun(context.Background(), run.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if len(got.Outcomes) != 0 {
			t.Errorf("got %d outcomes, want 0", len(got.Outcomes))
		}
	})
}

func TestGetRunLookup(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first := newTestRun(time.Now())
	first.ID = "aaaa1111-0000-0000-0000-000000000000"
	second := newTestRun(time.Now())
	second.ID = "aaaa2222-0000-0000-0000-000000000000"
	for _, r := range []*model.Run{first, second} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		id      string
		wantID  string
		wantErr error
	}{
		{name: "full id", id: first.ID, wantID: first.ID},
		{name: "unique prefix", id: "aaaa2", wantID: second.ID},
		{name: "ambiguous prefix", id: "aaaa", wantErr: ErrAmbiguousRunID},
		{name: "unknown id", id: "ffff", wantErr: ErrRunNotFound},
		{name: "empty id", id: "", wantErr: ErrEmptyRunID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := db.GetRun(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetRun(%q) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetRun(%q) error = %v", tt.id, err)
			}
			if got.ID != tt.wantID {
				t.Errorf("GetRun(%q).ID = %q, want %q", tt.id, got.ID, tt.wantID)
			}
		})
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		run := newTestRun(base.Add(time.Duration(i) * time.Hour))
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		ids = append(ids, run.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		got := make([]string, len(runs))
		for i, r := range runs {
			got[i] = r.ID
		}
		want := []string{ids[2], ids[1], ids[0]}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ListRuns() order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("limit and summary", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 1)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("ListRuns(1) returned %d runs", len(runs))
		}
		meta := runs[0]
		if meta.Total() != 3 || meta.Summary["submitted"] != 1 || meta.Summary["error"] != 1 {
			t.Errorf("Summary = %v, Total() = %d", meta.Summary, meta.Total())
		}
		if !meta.StartedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("StartedAt = %v", meta.StartedAt)
		}
	})
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	run := newTestRun(time.Now())
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	if err := db.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	if _, err := db.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
	}
	if err := db.DeleteRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() error = %v, want ErrRunNotFound", err)
	}
	if err := db.DeleteRun(ctx, ""); !errors.Is(err, ErrEmptyRunID) {
		t.Errorf("DeleteRun(\"\") error = %v, want ErrEmptyRunID", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "stored format", input: "2026-01-02T03:04:05.000000006Z", want: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)},
		{name: "rfc3339", input: "2026-01-02T03:04:05Z", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "sqlite default", input: "2026-01-02 03:04:05", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "empty", input: "", want: time.Time{}},
		{name: "garbage", input: "yesterday", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
