package db

import (
	"context"
	"testing"
)

func TestIndexBuildStoreLifecycle(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	store := NewIndexBuildStore(d)
	ctx := context.Background()

	before, err := store.LastStartedAt(ctx)
	if err != nil {
		t.Fatalf("LastStartedAt() error: %v", err)
	}
	if !before.IsZero() {
		t.Fatalf("expected zero time before any completed build, got %v", before)
	}

	id, err := store.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := store.Complete(ctx, id, 42); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	after, err := store.LastStartedAt(ctx)
	if err != nil {
		t.Fatalf("LastStartedAt() error: %v", err)
	}
	if after.IsZero() {
		t.Error("expected a non-zero last-started time after a completed build")
	}
}

func TestIndexBuildStoreFailedBuildNotLatest(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	store := NewIndexBuildStore(d)
	ctx := context.Background()

	id, err := store.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := store.Fail(ctx, id); err != nil {
		t.Fatalf("Fail() error: %v", err)
	}

	last, err := store.LastStartedAt(ctx)
	if err != nil {
		t.Fatalf("LastStartedAt() error: %v", err)
	}
	if !last.IsZero() {
		t.Error("a failed build must not count as the last completed build")
	}
}
