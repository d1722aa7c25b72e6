// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts authentication outcomes.
type Metrics struct {
	Logins        *prometheus.CounterVec
	OTPIssued     *prometheus.CounterVec
	OTPRejected   *prometheus.CounterVec
	Registrations prometheus.Counter
}

// NewMetrics creates auth metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adminkit_auth_logins_total",
				Help: "Login attempts by method and result",
			},
			[]string{"method", "result"},
		),
		OTPIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adminkit_auth_otp_issued_total",
				Help: "One-time codes issued by purpose",
			},
			[]string{"purpose"},
		),
		OTPRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adminkit_auth_otp_rejected_total",
				Help: "One-time codes rejected by purpose and outcome",
			},
			[]string{"purpose", "outcome"},
		),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_auth_registrations_total",
			Help: "Accounts created",
		}),
	}

	reg.MustRegister(m.Logins, m.OTPIssued, m.OTPRejected, m.Registrations)
	return m
}

func (m *Metrics) login(method, result string) {
	if m != nil {
		m.Logins.WithLabelValues(method, result).Inc()
	}
}

func (m *Metrics) otpIssued(purpose string) {
	if m != nil {
		m.OTPIssued.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) otpRejected(purpose, outcome string) {
	if m != nil {
		m.OTPRejected.WithLabelValues(purpose, outcome).Inc()
	}
}

func (m *Metrics) registered() {
	if m != nil {
		m.Registrations.Inc()
	}
}
