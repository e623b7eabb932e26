package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_scans_total",
			Help: "Total card scans by target type, resulting action and outcome",
		},
		[]string{"target_type", "action", "status"},
	)

	occupancyCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "facility_occupancy_current",
			Help: "Current occupant count per facility",
		},
		[]string{"facility_id"},
	)

	sessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_session_duration_seconds",
			Help:    "Duration of closed attendance sessions",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		},
		[]string{"event_slug"},
	)

	eligibleAttendees = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_eligibility_reached_total",
			Help: "Attendees that crossed the minimum-attendance threshold",
		},
		[]string{"event_slug"},
	)
)

type Monitor struct {
	redis *redis.Client
}

// NewMonitor starts the background gauge refresh over the cached
// occupancy projections in Redis.
func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectOccupancyMetrics(context.Background())
	}
}

func (m *Monitor) collectOccupancyMetrics(ctx context.Context) {
	if m.redis == nil {
		return
	}

	keys, _ := m.redis.Keys(ctx, "occupancy:*").Result()
	for _, key := range keys {
		raw, err := m.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		var cached struct {
			FacilityID string `json:"facility_id"`
			Current    int    `json:"current"`
		}
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			continue
		}
		occupancyCurrent.WithLabelValues(cached.FacilityID).Set(float64(cached.Current))
	}
}

// TrackScan records one scan attempt in the counters.
func (m *Monitor) TrackScan(targetType, action, status string) {
	if m == nil {
		return
	}
	scansTotal.WithLabelValues(targetType, action, status).Inc()
}

// TrackOccupancy updates the per-facility gauge after a scan.
func (m *Monitor) TrackOccupancy(facilityID string, current int) {
	if m == nil {
		return
	}
	occupancyCurrent.WithLabelValues(facilityID).Set(float64(current))
}

// TrackSessionDuration observes a closed attendance session.
func (m *Monitor) TrackSessionDuration(eventSlug string, duration time.Duration) {
	if m == nil {
		return
	}
	sessionDuration.WithLabelValues(eventSlug).Observe(duration.Seconds())
}

// TrackEligibilityReached counts attendees crossing the threshold.
func (m *Monitor) TrackEligibilityReached(eventSlug string) {
	if m == nil {
		return
	}
	eligibleAttendees.WithLabelValues(eventSlug).Inc()
}
