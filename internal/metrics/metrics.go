package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venturematch_feed_requests_total",
		Help: "Discovery feed requests served.",
	})

	FeedCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venturematch_feed_cache_hits_total",
		Help: "Feed pages served from the cache.",
	})

	FeedCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venturematch_feed_cache_misses_total",
		Help: "Feed pages computed from the store.",
	})

	LikesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venturematch_likes_total",
		Help: "Like actions recorded, by tier and outcome.",
	}, []string{"tier", "outcome"})

	PassesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venturematch_passes_total",
		Help: "Pass actions recorded.",
	})

	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venturematch_matches_created_total",
		Help: "Matches created from reciprocal likes.",
	})
)
