package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// scanKeys walks every key matching pattern and hands each batch to fn.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
