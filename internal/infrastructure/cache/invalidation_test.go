package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeCache struct {
	deletedPatterns []string
	deleteErr       error
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error { return nil }

func (f *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedPatterns = append(f.deletedPatterns, pattern)
	return nil
}

func (f *fakeCache) Increment(ctx context.Context, key string) (int64, error) { return 0, nil }

func (f *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func (f *fakeCache) Ping(ctx context.Context) error { return nil }

func TestInvalidationBusDropsTagPrefixes(t *testing.T) {
	fc := &fakeCache{}
	bus := NewInvalidationBus(fc)

	bus.Invalidate(context.Background(), TagOrderRefunds, TagAdminBadges)

	assert.Equal(t, []string{
		"cache:" + TagOrderRefunds + "*",
		"cache:" + TagAdminBadges + "*",
	}, fc.deletedPatterns)
}

func TestInvalidationBusSwallowsFailures(t *testing.T) {
	fc := &fakeCache{deleteErr: errors.New("redis down")}
	bus := NewInvalidationBus(fc)

	// Must not panic or propagate: invalidation is best-effort.
	bus.Invalidate(context.Background(), TagOrderList)
	assert.Empty(t, fc.deletedPatterns)
}
