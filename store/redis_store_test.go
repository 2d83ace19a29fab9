package store

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client)
}

func TestRedis_SetOperations(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if err := r.SetAdd(ctx, "topics", "a/b"); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}
	if err := r.SetAdd(ctx, "topics", "c/d"); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}

	members, err := r.SetMembers(ctx, "topics")
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	sort.Strings(members)
	if len(members) != 2 || members[0] != "a/b" || members[1] != "c/d" {
		t.Fatalf("unexpected members: %v", members)
	}

	if err := r.SetRemove(ctx, "topics", "a/b"); err != nil {
		t.Fatalf("SetRemove: %v", err)
	}
	members, _ = r.SetMembers(ctx, "topics")
	if len(members) != 1 || members[0] != "c/d" {
		t.Fatalf("unexpected members after remove: %v", members)
	}

	if err := r.SetDelete(ctx, "topics"); err != nil {
		t.Fatalf("SetDelete: %v", err)
	}
	members, err = r.SetMembers(ctx, "topics")
	if err != nil || len(members) != 0 {
		t.Fatalf("expected empty set after delete, got %v, err=%v", members, err)
	}
}

func TestRedis_HashOperations(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if err := r.HashPut(ctx, "topic:a/b", "client1", "1"); err != nil {
		t.Fatalf("HashPut: %v", err)
	}
	if err := r.HashPut(ctx, "topic:a/b", "client2", "2"); err != nil {
		t.Fatalf("HashPut: %v", err)
	}

	entries, err := r.HashEntries(ctx, "topic:a/b")
	if err != nil {
		t.Fatalf("HashEntries: %v", err)
	}
	if entries["client1"] != "1" || entries["client2"] != "2" {
		t.Fatalf("unexpected entries: %v", entries)
	}

	if err := r.HashRemove(ctx, "topic:a/b", "client1"); err != nil {
		t.Fatalf("HashRemove: %v", err)
	}
	entries, _ = r.HashEntries(ctx, "topic:a/b")
	if _, ok := entries["client1"]; ok {
		t.Fatalf("expected client1 removed, got %v", entries)
	}
}

func TestRedis_MissingKeyIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	members, err := r.SetMembers(ctx, "does-not-exist")
	if err != nil || len(members) != 0 {
		t.Fatalf("expected empty, nil-error result, got %v, %v", members, err)
	}

	entries, err := r.HashEntries(ctx, "does-not-exist")
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty, nil-error result, got %v, %v", entries, err)
	}
}
