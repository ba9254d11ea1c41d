package retention_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/retention"
)

type fakeStore struct {
	deleted []string
	failIDs map[string]bool
}

func (s *fakeStore) List(ctx context.Context, folder string) ([]platform.Object, error) {
	return nil, nil
}

func (s *fakeStore) Upload(ctx context.Context, localPath, folder, name string) (string, error) {
	return "", nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	if s.failIDs[id] {
		return errors.New("remote: permission denied")
	}
	s.deleted = append(s.deleted, id)
	return nil
}

// fixture returns 11 artifacts aged 0..10 days.
func fixture(now time.Time) []platform.Object {
	var objs []platform.Object
	for age := 0; age <= 10; age++ {
		objs = append(objs, platform.Object{
			ID:        fmt.Sprintf("obj-%02d", age),
			Name:      fmt.Sprintf("track-%02d.mp3", age),
			CreatedAt: now.Add(-time.Duration(age) * 24 * time.Hour),
		})
	}
	return objs
}

func TestEvaluate_AgeThenCountPass(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	pol := retention.Policy{MaxAge: 7 * 24 * time.Hour, MaxCount: 3}

	plan := pol.Evaluate(fixture(now), now)

	// Ages 8, 9, 10 fall to the age pass. Of the eight survivors
	// (ages 0..7) the five oldest fall to the count pass.
	wantDelete := []string{
		"obj-08", "obj-09", "obj-10", // age pass, listing order
		"obj-07", "obj-06", "obj-05", "obj-04", "obj-03", // count pass, oldest first
	}
	if len(plan.Delete) != len(wantDelete) {
		t.Fatalf("len(plan.Delete) = %d, want %d", len(plan.Delete), len(wantDelete))
	}
	for i, obj := range plan.Delete {
		if obj.ID != wantDelete[i] {
			t.Errorf("plan.Delete[%d] = %q, want %q", i, obj.ID, wantDelete[i])
		}
	}
	if plan.Kept != 3 {
		t.Errorf("plan.Kept = %d, want 3", plan.Kept)
	}
}

func TestEvaluate_ZeroPoliciesDisablePasses(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	objs := fixture(now)

	plan := retention.Policy{}.Evaluate(objs, now)
	if len(plan.Delete) != 0 {
		t.Errorf("disabled policy deleted %d artifacts, want 0", len(plan.Delete))
	}
	if plan.Kept != len(objs) {
		t.Errorf("plan.Kept = %d, want %d", plan.Kept, len(objs))
	}
}

func TestEvaluate_SkipsUnparsableCreationTime(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	objs := []platform.Object{
		{ID: "obj-old", Name: "old.mp3", CreatedAt: now.Add(-40 * 24 * time.Hour)},
		{ID: "obj-mystery", Name: "mystery.mp3"}, // zero CreatedAt
	}

	plan := retention.Policy{MaxAge: 30 * 24 * time.Hour, MaxCount: 500}.Evaluate(objs, now)

	if plan.Skipped != 1 {
		t.Errorf("plan.Skipped = %d, want 1", plan.Skipped)
	}
	for _, obj := range plan.Delete {
		if obj.ID == "obj-mystery" {
			t.Error("artifact with unknown creation time was scheduled for deletion")
		}
	}
	if len(plan.Delete) != 1 || plan.Delete[0].ID != "obj-old" {
		t.Errorf("plan.Delete = %v, want [obj-old]", plan.Delete)
	}
}

func TestApply_ContinuesPastFailures(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{failIDs: map[string]bool{"obj-09": true}}

	pol := retention.Policy{MaxAge: 7 * 24 * time.Hour}
	plan := pol.Evaluate(fixture(now), now)

	deleted := retention.Apply(context.Background(), store, plan, nil)

	if deleted != 2 {
		t.Errorf("Apply() = %d, want 2", deleted)
	}
	want := []string{"obj-08", "obj-10"}
	if len(store.deleted) != len(want) {
		t.Fatalf("store.deleted = %v, want %v", store.deleted, want)
	}
	for i, id := range store.deleted {
		if id != want[i] {
			t.Errorf("store.deleted[%d] = %q, want %q", i, id, want[i])
		}
	}
}
