package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion outcomes for the metrics label.
const (
	outcomeSuccess = "success"
	outcomeTimeout = "timeout"
	outcomeFailed  = "failed"
)

var (
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc2pdf_conversions_total",
		Help: "Total conversion attempts by outcome.",
	}, []string{"outcome"})

	conversionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doc2pdf_conversions_in_flight",
		Help: "Current number of conversions in progress.",
	})

	conversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doc2pdf_conversion_duration_seconds",
		Help:    "Conversion duration in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	uploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc2pdf_uploads_rejected_total",
		Help: "Uploads rejected before conversion, by reason.",
	}, []string{"reason"})
)
