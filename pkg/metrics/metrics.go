/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics provides Prometheus metrics for the broker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Secret read outcomes.
const (
	ReadFound  = "found"
	ReadAbsent = "absent"
	ReadError  = "error"
)

// System config key sources.
const (
	SourceStore = "store"
	SourceLocal = "local"
	SourceUnset = "unset"
)

var (
	// SessionLoginsTotal counts login attempts per strategy.
	SessionLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Total number of secret store login attempts",
		},
		[]string{"strategy", "result"},
	)

	// SessionRenewalsTotal counts renewals triggered by an expired session.
	SessionRenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "session",
			Name:      "renewals_total",
			Help:      "Total number of session renewals",
		},
		[]string{"result"},
	)

	// SessionExpiryGauge records the current session expiry as a unix timestamp.
	// Zero means the session does not expire.
	SessionExpiryGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "broker",
			Subsystem: "session",
			Name:      "expiry_timestamp_seconds",
			Help:      "Unix time at which the current session is considered expired (0=never)",
		},
	)

	// SecretReadsTotal counts secret reads by outcome.
	SecretReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "secret",
			Name:      "reads_total",
			Help:      "Total number of secret reads by outcome (found, absent, error)",
		},
		[]string{"result"},
	)

	// SysConfigKeysGauge tracks where each whitelisted config key came from.
	SysConfigKeysGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "broker",
			Subsystem: "sysconfig",
			Name:      "keys",
			Help:      "Number of whitelisted system config keys by source (store, local, unset)",
		},
		[]string{"source"},
	)

	// SignRequestsTotal counts signing attempts by final stage and result.
	SignRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "signer",
			Name:      "requests_total",
			Help:      "Total number of request signing attempts",
		},
		[]string{"stage", "result"},
	)

	// RoleAssumptionsTotal counts STS role exchanges.
	RoleAssumptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "signer",
			Name:      "role_assumptions_total",
			Help:      "Total number of role assumption calls",
		},
		[]string{"result"},
	)
)

func init() {
	// Register all metrics with the controller-runtime metrics registry
	metrics.Registry.MustRegister(
		SessionLoginsTotal,
		SessionRenewalsTotal,
		SessionExpiryGauge,
		SecretReadsTotal,
		SysConfigKeysGauge,
		SignRequestsTotal,
		RoleAssumptionsTotal,
	)
}

// Handler serves the broker's metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

// IncrementLogin increments the login counter for a strategy.
func IncrementLogin(strategy string, success bool) {
	SessionLoginsTotal.WithLabelValues(strategy, result(success)).Inc()
}

// IncrementRenewal increments the renewal counter.
func IncrementRenewal(success bool) {
	SessionRenewalsTotal.WithLabelValues(result(success)).Inc()
}

// SetSessionExpiry records the current session expiry.
func SetSessionExpiry(expiresAt time.Time) {
	if expiresAt.IsZero() {
		SessionExpiryGauge.Set(0)
		return
	}
	SessionExpiryGauge.Set(float64(expiresAt.Unix()))
}

// IncrementSecretRead increments the secret read counter for an outcome.
func IncrementSecretRead(outcome string) {
	SecretReadsTotal.WithLabelValues(outcome).Inc()
}

// SetSysConfigKeys records how many whitelisted keys came from each source.
func SetSysConfigKeys(fromStore, kept, unset int) {
	SysConfigKeysGauge.WithLabelValues(SourceStore).Set(float64(fromStore))
	SysConfigKeysGauge.WithLabelValues(SourceLocal).Set(float64(kept))
	SysConfigKeysGauge.WithLabelValues(SourceUnset).Set(float64(unset))
}

// IncrementSignRequest increments the signing counter. stage is the stage
// that failed, or "complete" on success.
func IncrementSignRequest(stage string, success bool) {
	SignRequestsTotal.WithLabelValues(stage, result(success)).Inc()
}

// IncrementRoleAssumption increments the role assumption counter.
func IncrementRoleAssumption(success bool) {
	RoleAssumptionsTotal.WithLabelValues(result(success)).Inc()
}
