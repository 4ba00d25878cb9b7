package chatsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEventsRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_push_events_total",
		Help: "Push-channel events routed to stores, by event name.",
	}, []string{"event"})

	metricEventsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_push_events_discarded_total",
		Help: "Push-channel events discarded because the chat reference could not be resolved.",
	})

	metricDuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_store_duplicates_dropped_total",
		Help: "Messages dropped because their id was already present in the chat sequence.",
	})

	metricPendingReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_store_pending_reconciled_total",
		Help: "Optimistic placeholder messages reconciled against their server echo.",
	})

	metricPagesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_history_pages_loaded_total",
		Help: "History pages successfully loaded into the message store.",
	})

	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_channel_reconnects_total",
		Help: "Realtime channel reconnection attempts.",
	})

	metricChannelUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_channel_connected",
		Help: "1 while the realtime channel has a live connection.",
	})
)
