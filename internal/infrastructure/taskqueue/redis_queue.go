package taskqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/platform/logging"
)

const (
	defaultPromoteInterval = time.Second
	defaultPromoteBatch    = 128
)

// promoteScript atomically moves due members from the scheduled set onto the
// ready list. Without the script two consumers promoting at once could push
// the same task twice.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
if #due == 0 then
	return 0
end
redis.call('RPUSH', KEYS[2], unpack(due))
redis.call('ZREM', KEYS[1], unpack(due))
return #due
`)

type RedisQueueConfig struct {
	// Name prefixes every key so queues can share a Redis database.
	Name string
	// PromoteInterval bounds each blocking read so parked tasks are
	// re-checked even while the ready list stays empty.
	PromoteInterval time.Duration
	// PromoteBatch caps how many due tasks one promotion moves.
	PromoteBatch int
}

// RedisQueue implements analysis.Queue on two Redis structures: a list of
// ready tasks consumed with BLPOP and a sorted set of parked tasks scored by
// their not-before time. Consumers promote due tasks before every blocking
// read, so retry delays never hold a worker goroutine sleeping.
type RedisQueue struct {
	rdb             *redis.Client
	readyKey        string
	scheduledKey    string
	promoteInterval time.Duration
	promoteBatch    int
	logger          *logging.Logger

	now func() time.Time
}

func NewRedisQueue(rdb *redis.Client, cfg RedisQueueConfig, logger *logging.Logger) *RedisQueue {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "match-analysis"
	}
	promoteInterval := cfg.PromoteInterval
	if promoteInterval <= 0 {
		promoteInterval = defaultPromoteInterval
	}
	promoteBatch := cfg.PromoteBatch
	if promoteBatch <= 0 {
		promoteBatch = defaultPromoteBatch
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &RedisQueue{
		rdb:             rdb,
		readyKey:        "taskqueue:" + name + ":ready",
		scheduledKey:    "taskqueue:" + name + ":scheduled",
		promoteInterval: promoteInterval,
		promoteBatch:    promoteBatch,
		logger:          logger,
		now:             time.Now,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task analysis.Task) error {
	raw, err := sonic.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task match_id=%s: %w", task.Payload.MatchID, err)
	}
	if err := q.rdb.RPush(ctx, q.readyKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue task match_id=%s: %w", task.Payload.MatchID, err)
	}
	return nil
}

func (q *RedisQueue) EnqueueAt(ctx context.Context, task analysis.Task, notBefore time.Time) error {
	raw, err := sonic.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task match_id=%s: %w", task.Payload.MatchID, err)
	}
	member := redis.Z{Score: float64(notBefore.UnixMilli()), Member: string(raw)}
	if err := q.rdb.ZAdd(ctx, q.scheduledKey, member).Err(); err != nil {
		return fmt.Errorf("schedule task match_id=%s: %w", task.Payload.MatchID, err)
	}
	return nil
}

// Dequeue blocks until a task is ready or ctx is done. It alternates between
// promoting due parked tasks and a bounded BLPOP so neither starves the other.
func (q *RedisQueue) Dequeue(ctx context.Context) (analysis.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return analysis.Task{}, err
		}

		if _, err := q.PromoteDue(ctx); err != nil {
			q.logger.WarnContext(ctx, "promote parked tasks failed", "error", err)
		}

		vals, err := q.rdb.BLPop(ctx, q.promoteInterval, q.readyKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return analysis.Task{}, ctx.Err()
			}
			return analysis.Task{}, fmt.Errorf("dequeue task: %w", err)
		}
		// BLPOP replies [key, value].
		if len(vals) != 2 {
			return analysis.Task{}, fmt.Errorf("dequeue task: unexpected blpop reply length %d", len(vals))
		}

		var task analysis.Task
		if err := sonic.Unmarshal([]byte(vals[1]), &task); err != nil {
			return analysis.Task{}, fmt.Errorf("unmarshal task: %w", err)
		}
		return task, nil
	}
}

// PromoteDue moves parked tasks whose not-before time has passed onto the
// ready list and reports how many moved.
func (q *RedisQueue) PromoteDue(ctx context.Context) (int, error) {
	promoted, err := promoteScript.Run(ctx, q.rdb,
		[]string{q.scheduledKey, q.readyKey},
		q.now().UnixMilli(), q.promoteBatch,
	).Int()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("promote parked tasks: %w", err)
	}
	return promoted, nil
}
