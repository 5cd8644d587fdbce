package notes

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisLease(t *testing.T) {
	srv := miniredis.RunT(t)
	lease, err := NewRedisLease(srv.Addr(), "")
	if err != nil {
		t.Fatalf("new redis lease: %v", err)
	}
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "video:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed, ok=%v err=%v", ok, err)
	}
	ok, err = lease.Acquire(ctx, "video:1", time.Minute)
	if err != nil || ok {
		t.Fatalf("second acquire should fail, ok=%v err=%v", ok, err)
	}
	// Other resources are independent.
	ok, err = lease.Acquire(ctx, "pdf:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire for other key should succeed, ok=%v err=%v", ok, err)
	}

	if err := lease.Release(ctx, "video:1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = lease.Acquire(ctx, "video:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release should succeed, ok=%v err=%v", ok, err)
	}
}

func TestRedisLeaseExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	lease, err := NewRedisLease(srv.Addr(), "")
	if err != nil {
		t.Fatalf("new redis lease: %v", err)
	}
	ctx := context.Background()

	if ok, _ := lease.Acquire(ctx, "video:2", time.Second); !ok {
		t.Fatal("first acquire should succeed")
	}
	srv.FastForward(2 * time.Second)
	if ok, _ := lease.Acquire(ctx, "video:2", time.Second); !ok {
		t.Fatal("acquire after expiry should succeed")
	}
}

func TestMemoryLease(t *testing.T) {
	lease := NewMemoryLease()
	ctx := context.Background()

	if ok, _ := lease.Acquire(ctx, "video:1", time.Minute); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := lease.Acquire(ctx, "video:1", time.Minute); ok {
		t.Fatal("second acquire should fail while held")
	}
	_ = lease.Release(ctx, "video:1")
	if ok, _ := lease.Acquire(ctx, "video:1", time.Minute); !ok {
		t.Fatal("acquire after release should succeed")
	}

	// Expired leases can be retaken.
	if ok, _ := lease.Acquire(ctx, "video:2", -time.Second); !ok {
		t.Fatal("acquire should succeed")
	}
	if ok, _ := lease.Acquire(ctx, "video:2", time.Minute); !ok {
		t.Fatal("expired lease should be retakable")
	}
}
