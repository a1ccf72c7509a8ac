package exam

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 30 * time.Minute

// Cache is a Redis-backed ExamCache. Identical requests within the TTL get
// the stored exam back instead of re-spending generation budget.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ExamCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// key hashes the normalized request so map iteration order cannot split the
// cache.
func (c *Cache) key(cfg GenerationConfig) string {
	var parts []string
	parts = append(parts, strings.Join(cfg.Files, ","))
	parts = append(parts, cfg.Topic, fmt.Sprint(cfg.TotalQuestions))

	var typeParts []string
	for k, v := range cfg.TypeTotals {
		typeParts = append(typeParts, fmt.Sprintf("%s:%d", k, v))
	}
	sort.Strings(typeParts)
	parts = append(parts, strings.Join(typeParts, "|"))

	var diffParts []string
	for k, v := range cfg.DifficultyTotals {
		diffParts = append(diffParts, fmt.Sprintf("%s:%d", k, v))
	}
	sort.Strings(diffParts)
	parts = append(parts, strings.Join(diffParts, "|"))

	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return "examgen:exam:" + hex.EncodeToString(sum[:])
}

func (c *Cache) Get(ctx context.Context, cfg GenerationConfig) (*Exam, error) {
	data, err := c.client.Get(ctx, c.key(cfg)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var e Exam
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Cache) Set(ctx context.Context, cfg GenerationConfig, e *Exam) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(cfg), data, c.ttl).Err()
}
