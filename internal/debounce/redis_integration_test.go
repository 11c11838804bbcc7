//go:build integration

package debounce_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/debounce"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestMarkAndRead() {
	store := debounce.NewRedisStore(s.redis.Client, 24*time.Hour)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := store.LastVerified(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(store.MarkVerified(s.ctx, "shop.example.com", at))

	got, ok, err := store.LastVerified(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.True(at.Equal(got))
}

func (s *RedisStoreSuite) TestMarksExpireWithTheWindow() {
	store := debounce.NewRedisStore(s.redis.Client, time.Second)
	s.Require().NoError(store.MarkVerified(s.ctx, "shop.example.com", time.Now()))

	_, ok, err := store.LastVerified(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.True(ok)

	time.Sleep(1200 * time.Millisecond)

	_, ok, err = store.LastVerified(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.False(ok, "an expired mark reopens the window")
}

func (s *RedisStoreSuite) TestUnreadableMarkReopensWindow() {
	store := debounce.NewRedisStore(s.redis.Client, time.Minute)
	s.Require().NoError(s.redis.Client.Set(s.ctx, "convocommerce:debounce:shop.example.com", "not-a-timestamp", time.Minute).Err())

	_, ok, err := store.LastVerified(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.False(ok)
}
