package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/packing-audit/internal/config"
	"github.com/redis/go-redis/v9"
)

func TestNewRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	cache, err := NewRedisCache(&config.RedisConfig{
		Host:           mr.Host(),
		Port:           mr.Port(),
		MaxConnections: 5,
	})
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	ctx := testContext(t)
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestRedisCache_SetGetDel(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer func() { _ = cache.Close() }()

	ctx := testContext(t)
	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "v" {
		t.Errorf("Get() = %v, want %v", got, "v")
	}

	if err := cache.Del(ctx, "k"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Del error = %v, want ErrCacheMiss", err)
	}
	if err := cache.Del(ctx); err != nil {
		t.Errorf("Del() with no keys error = %v", err)
	}
}

func TestRedisCache_Expiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer func() { _ = cache.Close() }()

	ctx := testContext(t)
	if err := cache.Set(ctx, "role:name:r1", "OPERATOR", time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "role:name:r1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestNewRedisCache_Unavailable(t *testing.T) {
	_, err := NewRedisCache(&config.RedisConfig{Host: "127.0.0.1", Port: "1", MaxConnections: 1})
	if err == nil {
		t.Error("NewRedisCache() expected error for unreachable server")
	}
}
