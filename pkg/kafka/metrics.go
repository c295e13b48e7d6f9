package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_messages_total",
		Help: "Messages handed to Kafka, by topic and outcome.",
	}, []string{"topic", "outcome"})

	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_producer_publish_duration_seconds",
		Help:    "Time to write one message, acks included.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"topic"})
)
