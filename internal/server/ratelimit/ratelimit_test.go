package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTokenBucket_Take(t *testing.T) {
	bucket := newTokenBucket(10, 1.0) // 10 tokens, 1 token per second

	// Should allow 10 requests immediately (burst)
	for i := 0; i < 10; i++ {
		if allowed, _, _ := bucket.take(); !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}

	// 11th request should be denied (no tokens left)
	allowed, remaining, resetTime := bucket.take()
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if remaining != 0 {
		t.Errorf("Expected 0 remaining tokens, got %d", remaining)
	}
	if !resetTime.After(time.Now()) {
		t.Error("Reset time should be in the future")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	bucket := newTokenBucket(2, 10.0) // 1 token per 100ms

	bucket.take()
	bucket.take()
	if allowed, _, _ := bucket.take(); allowed {
		t.Fatal("Expected empty bucket to deny")
	}

	time.Sleep(150 * time.Millisecond)

	if allowed, _, _ := bucket.take(); !allowed {
		t.Error("Expected request to be allowed after refill")
	}
}

func TestTokenBucket_NextToken(t *testing.T) {
	bucket := newTokenBucket(1, 1.0)
	if wait := bucket.nextToken(); wait != 0 {
		t.Errorf("Expected no wait on a full bucket, got %v", wait)
	}

	bucket.take()
	wait := bucket.nextToken()
	if wait <= 0 || wait > time.Second {
		t.Errorf("Expected wait in (0, 1s], got %v", wait)
	}
}

func TestLimiter_PageRendersLimited(t *testing.T) {
	limiter := NewLimiter(LoadConfig(3, nil))
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := limiter.Allow("10.0.0.1", "/", "GET")
		if !allowed {
			t.Errorf("Expected render %d to be allowed", i+1)
		}
		if info.Limit != 3 {
			t.Errorf("Expected limit 3, got %d", info.Limit)
		}
	}

	allowed, info := limiter.Allow("10.0.0.1", "/", "GET")
	if allowed {
		t.Error("Expected 4th render to be denied")
	}
	if info.RetryAfter <= 0 {
		t.Error("Expected retry after to be positive")
	}

	// HEAD shares the GET budget
	if allowed, _ := limiter.Allow("10.0.0.1", "/", "HEAD"); allowed {
		t.Error("Expected HEAD to share the exhausted GET bucket")
	}

	// Other clients have their own bucket
	if allowed, _ := limiter.Allow("10.0.0.2", "/", "GET"); !allowed {
		t.Error("Expected a different client to be allowed")
	}
}

func TestLimiter_StaticFilesUnlimited(t *testing.T) {
	limiter := NewLimiter(LoadConfig(1, nil))
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, info := limiter.Allow("10.0.0.1", fmt.Sprintf("/img/%d.png", i), "GET")
		if !allowed {
			t.Fatalf("Expected static request %d to be allowed", i+1)
		}
		if info.Limit != 0 {
			t.Errorf("Expected unlimited static route, got limit %d", info.Limit)
		}
	}

	if allowed, _ := limiter.Allow("10.0.0.1", "/healthz", "GET"); !allowed {
		t.Error("Expected health check to be unlimited")
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	env := map[string]string{"NEWSDESK_RATE_LIMIT_WHITELIST": "127.0.0.1, ::1"}
	limiter := NewLimiter(LoadConfig(1, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	defer limiter.Stop()

	// Whitelisted IP should always be allowed
	for i := 0; i < 20; i++ {
		allowed, rateInfo := limiter.Allow("127.0.0.1", "/", "GET")
		if !allowed {
			t.Errorf("Expected whitelisted request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 0 {
			t.Errorf("Expected limit 0 for whitelisted, got %d", rateInfo.Limit)
		}
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	env := map[string]string{"NEWSDESK_RATE_LIMIT_BLACKLIST": "192.168.1.1"}
	limiter := NewLimiter(LoadConfig(100, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	defer limiter.Stop()

	// Blacklisted IP should always be denied
	if allowed, _ := limiter.Allow("192.168.1.1", "/index.css", "GET"); allowed {
		t.Error("Expected blacklisted request to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(LoadConfig(0, nil))
	defer limiter.Stop()

	// When disabled, all requests should be allowed
	for i := 0; i < 100; i++ {
		allowed, rateInfo := limiter.Allow("127.0.0.1", "/", "GET")
		if !allowed {
			t.Errorf("Expected request %d to be allowed when disabled", i+1)
		}
		if rateInfo.Limit != 0 {
			t.Errorf("Expected limit 0 when disabled, got %d", rateInfo.Limit)
		}
	}
}

func TestLimiter_PrefixClassSharesBucket(t *testing.T) {
	config := &Config{
		Enabled:       true,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/feeds/", Method: "GET", Limit: 2, Window: time.Minute, Burst: 2},
		},
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()

	limiter.Allow("127.0.0.1", "/feeds/a", "GET")
	limiter.Allow("127.0.0.1", "/feeds/b", "GET")
	if allowed, _ := limiter.Allow("127.0.0.1", "/feeds/c", "GET"); allowed {
		t.Error("Expected paths under one prefix class to share a bucket")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	config := &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()

	var wg sync.WaitGroup
	allowedCount := 0
	var mu sync.Mutex

	// Make 200 concurrent requests (should only allow 100)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := limiter.Allow("127.0.0.1", "/", "GET")
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if allowedCount != 100 {
		t.Errorf("Expected 100 allowed requests, got %d", allowedCount)
	}
}

func TestLimiter_CleanupKeepsRecentBuckets(t *testing.T) {
	config := &Config{
		Enabled:         true,
		DefaultLimit:    10,
		DefaultWindow:   time.Minute,
		CleanupInterval: 50 * time.Millisecond,
	}
	limiter := NewLimiter(config)
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		clientID := fmt.Sprintf("127.0.0.%d", i+1)
		if allowed, _ := limiter.Allow(clientID, "/", "GET"); !allowed {
			t.Errorf("Expected request from %s to be allowed", clientID)
		}
	}

	time.Sleep(120 * time.Millisecond)

	limiter.mu.Lock()
	count := len(limiter.buckets)
	limiter.mu.Unlock()
	if count != 5 {
		t.Errorf("Expected recently used buckets to survive cleanup, got %d", count)
	}
}

func TestLimiter_DropIdleRemovesStaleBuckets(t *testing.T) {
	limiter := NewLimiter(LoadConfig(5, nil))
	defer limiter.Stop()

	limiter.Allow("10.0.0.1", "/", "GET")
	limiter.Allow("10.0.0.2", "/", "GET")

	limiter.dropIdle(time.Now().Add(time.Second))

	limiter.mu.Lock()
	count := len(limiter.buckets)
	limiter.mu.Unlock()
	if count != 0 {
		t.Errorf("Expected idle buckets to be dropped, got %d", count)
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(LoadConfig(5, nil))
	limiter.Stop()
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(60)

	if m := MatchEndpoint("/", "GET", configs); m == nil || m.Limit != 60 {
		t.Errorf("Expected root render to match, got %+v", m)
	}
	if m := MatchEndpoint("/index.css", "GET", configs); m != nil {
		t.Errorf("Expected exact root config not to match static paths, got %+v", m)
	}
	if m := MatchEndpoint("/", "POST", configs); m != nil {
		t.Errorf("Expected method mismatch to return nil, got %+v", m)
	}
	if m := MatchEndpoint("/healthz", "HEAD", configs); m == nil || m.Limit != 0 {
		t.Errorf("Expected health to be unlimited, got %+v", m)
	}
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, rateInfo := limiter.Allow("127.0.0.1", "/test", "GET")
	if !allowed {
		t.Error("Expected request to be allowed with default config")
	}
	if rateInfo.Limit != 60 {
		t.Errorf("Expected default limit 60, got %d", rateInfo.Limit)
	}
}
