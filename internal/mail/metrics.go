// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package mail

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts dispatcher activity.
type Metrics struct {
	Enqueued     prometheus.Counter
	Rejected     prometheus.Counter
	Delivered    prometheus.Counter
	Failed       prometheus.Counter
	DeadLettered prometheus.Counter
	DryRun       prometheus.Counter
	QueueDepth   prometheus.Gauge
}

// NewMetrics creates dispatcher metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_mail_enqueued_total",
			Help: "Messages accepted into the delivery queue",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_mail_rejected_total",
			Help: "Messages refused because the queue was full",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_mail_delivered_total",
			Help: "Messages handed to the transport successfully",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_mail_failed_attempts_total",
			Help: "Delivery attempts that failed",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_mail_dead_lettered_total",
			Help: "Messages abandoned after exhausting their attempts",
		}),
		DryRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_mail_dry_run_total",
			Help: "Messages logged and discarded in dry-run mode",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adminkit_mail_queue_depth",
			Help: "Messages waiting for delivery",
		}),
	}

	reg.MustRegister(m.Enqueued, m.Rejected, m.Delivered, m.Failed, m.DeadLettered, m.DryRun, m.QueueDepth)
	return m
}
