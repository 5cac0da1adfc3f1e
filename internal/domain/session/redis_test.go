package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

func TestRedisStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Get: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Set(ctx, &FacilityContext{SessionID: "sess-1"}); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Set: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Delete: expected ErrStoreUnavailable, got %v", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := Connect(context.Background(), "not-a-redis-url"); err == nil {
		t.Error("expected error for invalid url")
	}
}
