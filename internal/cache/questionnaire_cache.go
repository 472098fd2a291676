// Package cache provides a two-tier read-through cache for questionnaire
// definitions: an in-memory LRU for hot entries backed by an optional Redis
// tier shared across server instances.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

const redisKeyPrefix = "donation:cache:questionnaire:"

// Stats represents cache performance statistics.
type Stats struct {
	MemoryHits   int64     `json:"memory_hits"`
	MemoryMisses int64     `json:"memory_misses"`
	RedisHits    int64     `json:"redis_hits"`
	RedisMisses  int64     `json:"redis_misses"`
	SourceLoads  int64     `json:"source_loads"`
	ErrorCount   int64     `json:"error_count"`
	LastReset    time.Time `json:"last_reset"`
}

// QuestionnaireCache is a read-through domain.QuestionnaireSource. A miss in
// both tiers falls through to the underlying source, and the result is
// written back on the way out.
type QuestionnaireCache struct {
	source domain.QuestionnaireSource

	memory    *lru.Cache
	memoryTTL time.Duration

	redis    *redis.Client
	redisTTL time.Duration

	logger  *logrus.Logger
	stats   Stats
	statsMu sync.RWMutex
}

type memoryEntry struct {
	questionnaire *domain.Questionnaire
	expiresAt     time.Time
}

func (e *memoryEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// NewQuestionnaireCache creates a new questionnaire cache in front of the
// given source. The redis client may be nil, in which case only the memory
// tier is used.
func NewQuestionnaireCache(source domain.QuestionnaireSource, config domain.CacheConfig, redisClient *redis.Client, logger *logrus.Logger) (*QuestionnaireCache, error) {
	if config.MemorySize == 0 {
		config.MemorySize = 100
	}
	if config.MemoryTTL == 0 {
		config.MemoryTTL = 15 * time.Minute
	}
	if config.RedisTTL == 0 {
		config.RedisTTL = 24 * time.Hour
	}

	memory, err := lru.New(config.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &QuestionnaireCache{
		source:    source,
		memory:    memory,
		memoryTTL: config.MemoryTTL,
		redis:     redisClient,
		redisTTL:  config.RedisTTL,
		logger:    logger,
		stats:     Stats{LastReset: time.Now()},
	}, nil
}

// GetQuestionnaire looks the questionnaire up through the cache tiers.
func (c *QuestionnaireCache) GetQuestionnaire(ctx context.Context, id string) (*domain.Questionnaire, error) {
	if questionnaire := c.fromMemory(id); questionnaire != nil {
		c.bump(func(s *Stats) { s.MemoryHits++ })
		return questionnaire, nil
	}
	c.bump(func(s *Stats) { s.MemoryMisses++ })

	if questionnaire := c.fromRedis(ctx, id); questionnaire != nil {
		c.bump(func(s *Stats) { s.RedisHits++ })
		c.toMemory(id, questionnaire)
		return questionnaire, nil
	}
	if c.redis != nil {
		c.bump(func(s *Stats) { s.RedisMisses++ })
	}

	questionnaire, err := c.source.GetQuestionnaire(ctx, id)
	if err != nil {
		c.bump(func(s *Stats) { s.ErrorCount++ })
		return nil, err
	}
	c.bump(func(s *Stats) { s.SourceLoads++ })

	c.toMemory(id, questionnaire)
	c.toRedis(ctx, id, questionnaire)

	return questionnaire, nil
}

// Invalidate drops a questionnaire from both tiers, for use after staff
// edits a definition.
func (c *QuestionnaireCache) Invalidate(ctx context.Context, id string) error {
	c.memory.Remove(id)

	if c.redis != nil {
		if err := c.redis.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
			return fmt.Errorf("invalidating redis entry: %w", err)
		}
	}

	c.logger.WithField("questionnaire_id", id).Info("Invalidated cached questionnaire")
	return nil
}

// GetStats returns a snapshot of the cache counters.
func (c *QuestionnaireCache) GetStats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *QuestionnaireCache) fromMemory(id string) *domain.Questionnaire {
	value, ok := c.memory.Get(id)
	if !ok {
		return nil
	}
	entry, ok := value.(*memoryEntry)
	if !ok || entry.expired() {
		c.memory.Remove(id)
		return nil
	}
	return entry.questionnaire
}

func (c *QuestionnaireCache) toMemory(id string, questionnaire *domain.Questionnaire) {
	c.memory.Add(id, &memoryEntry{
		questionnaire: questionnaire,
		expiresAt:     time.Now().Add(c.memoryTTL),
	})
}

func (c *QuestionnaireCache) fromRedis(ctx context.Context, id string) *domain.Questionnaire {
	if c.redis == nil {
		return nil
	}

	data, err := c.redis.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Redis cache read failed")
			c.bump(func(s *Stats) { s.ErrorCount++ })
		}
		return nil
	}

	var questionnaire domain.Questionnaire
	if err := json.Unmarshal(data, &questionnaire); err != nil {
		c.logger.WithError(err).Warn("Corrupt redis cache entry, dropping")
		c.redis.Del(ctx, redisKeyPrefix+id)
		return nil
	}
	return &questionnaire
}

func (c *QuestionnaireCache) toRedis(ctx context.Context, id string, questionnaire *domain.Questionnaire) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(questionnaire)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal questionnaire for redis")
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+id, data, c.redisTTL).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis cache write failed")
		c.bump(func(s *Stats) { s.ErrorCount++ })
	}
}

func (c *QuestionnaireCache) bump(fn func(*Stats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(&c.stats)
}
