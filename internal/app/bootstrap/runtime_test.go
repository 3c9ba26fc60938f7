package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/medassist-ai/intake-platform/internal/config"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "  "}
	if client := BuildRedisClient(context.Background(), cfg, logging.Default(), false); client != nil {
		t.Fatal("expected nil client when redis addr is blank")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatal("expected nil client when config is nil")
	}
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &appconfig.Config{RedisAddr: mr.Addr()}
	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	if client == nil {
		t.Fatal("expected client for reachable redis")
	}
	defer client.Close()

	// Unreachable redis with verify on returns nil instead of a broken client.
	cfg = &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if c := BuildRedisClient(context.Background(), cfg, logging.Default(), true); c != nil {
		t.Fatal("expected nil client for unreachable redis")
	}
}

func TestBuildDatabaseRequiresURL(t *testing.T) {
	if _, _, err := BuildDatabase(context.Background(), &appconfig.Config{}); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestBuildRateLimiter(t *testing.T) {
	if rl := BuildRateLimiter(nil, &appconfig.Config{RateLimitPerSecond: 0}, nil); rl != nil {
		t.Fatal("expected nil limiter when rate limiting is off")
	}

	local := BuildRateLimiter(nil, &appconfig.Config{RateLimitPerSecond: 5, RateLimitBurst: 10}, logging.Default())
	if local == nil {
		t.Fatal("expected local limiter without redis")
	}
	ok, err := local.Allow(context.Background(), "client-a")
	if err != nil || !ok {
		t.Fatalf("expected first request allowed, got ok=%v err=%v", ok, err)
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	defer client.Close()

	shared := BuildRateLimiter(client, &appconfig.Config{RateLimitPerSecond: 5}, nil)
	if shared == nil {
		t.Fatal("expected redis limiter")
	}
	ok, err = shared.Allow(context.Background(), "client-b")
	if err != nil || !ok {
		t.Fatalf("expected first request allowed, got ok=%v err=%v", ok, err)
	}
}
