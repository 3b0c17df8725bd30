package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/agilpa/solicitation-api/pkg/circuitbreaker"
	"github.com/agilpa/solicitation-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("redis_broker_test", "")

func TestPublishRecordsOutcome(t *testing.T) {
	// Nothing listens on port 1; the publish fails and the error outcome
	// must land on the counter.
	b := &RedisBroker{
		client: goredis.NewClient(&goredis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		}),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "test",
			MaxFailures: 5,
			Timeout:     time.Second,
		}),
		metrics: testMetrics,
	}
	defer b.Close()

	err := b.Publish(context.Background(), "notifications", map[string]string{"k": "v"})
	assert.Error(t, err)
	assert.Equal(t, 1.0,
		testutil.ToFloat64(testMetrics.RedisOperations.WithLabelValues("publish", "error")))
}
