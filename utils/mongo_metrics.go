package utils

import (
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

type MongoMetrics struct {
	ActiveConnections  int64
	CreatedConnections int64
	ClosedConnections  int64
	LastCheckTime      time.Time
}

var (
	activeConns  atomic.Int64
	createdConns atomic.Int64
	closedConns  atomic.Int64
	lastCheck    atomic.Int64
)

// NewPoolMonitor feeds pool events into the counters above and the
// mongo_pool_connections gauge.
func NewPoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			lastCheck.Store(time.Now().UnixNano())
			switch evt.Type {
			case event.ConnectionCreated:
				createdConns.Add(1)
				MongoConnections.WithLabelValues("open").Inc()
			case event.ConnectionClosed:
				closedConns.Add(1)
				MongoConnections.WithLabelValues("open").Dec()
			case event.GetSucceeded:
				activeConns.Add(1)
				MongoConnections.WithLabelValues("in_use").Inc()
			case event.ConnectionReturned:
				activeConns.Add(-1)
				MongoConnections.WithLabelValues("in_use").Dec()
			}
		},
	}
}

func GetMongoMetrics() MongoMetrics {
	m := MongoMetrics{
		ActiveConnections:  activeConns.Load(),
		CreatedConnections: createdConns.Load(),
		ClosedConnections:  closedConns.Load(),
	}
	if ts := lastCheck.Load(); ts > 0 {
		m.LastCheckTime = time.Unix(0, ts)
	}
	return m
}
