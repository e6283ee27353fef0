// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authenticator.
//
// go-authenticator is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for key store,
// envelope, signing and provisioning operations.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all authenticator metrics
	Namespace = "authenticator"

	LabelOperation = "operation"
	LabelComponent = "component"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelVersion   = "api_version"
	LabelState     = "state"

	StatusSuccess = "success"
	StatusError   = "error"

	// Components
	ComponentKeyStore     = "keystore"
	ComponentEnvelope     = "envelope"
	ComponentSigner       = "signer"
	ComponentProvisioning = "provisioning"

	// Operation names
	OpGenerate  = "generate"
	OpImport    = "import"
	OpExport    = "export"
	OpDelete    = "delete"
	OpEncrypt   = "encrypt"
	OpDecrypt   = "decrypt"
	OpSign      = "sign"
	OpProvision = "provision"
	OpRevoke    = "revoke"
)

var (
	// OperationsTotal counts operations by component and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of operations by type, component, and status",
		},
		[]string{LabelOperation, LabelComponent, LabelStatus},
	)

	// OperationDuration tracks operation latency in seconds. RSA key
	// generation dominates the upper buckets.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelOperation, LabelComponent},
	)

	// ErrorsTotal counts failures by error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, component, and error type",
		},
		[]string{LabelOperation, LabelComponent, LabelErrorType},
	)

	// ProvisioningTransitions counts entries into each provisioning state.
	ProvisioningTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "provisioning",
			Name:      "transitions_total",
			Help:      "Provisioning state transitions by protocol version and state",
		},
		[]string{LabelVersion, LabelState},
	)
)

var enabled atomic.Bool

func init() {
	enabled.Store(true)
}

func Enable()         { enabled.Store(true) }
func Disable()        { enabled.Store(false) }
func IsEnabled() bool { return enabled.Load() }

// RecordOperation records one completed operation.
func RecordOperation(operation, component, status string, duration time.Duration) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, component, status).Inc()
	OperationDuration.WithLabelValues(operation, component).Observe(duration.Seconds())
}

// RecordError records a failure. errorType should be a short stable
// identifier such as "not_found" or "decrypt_chunk_failed".
func RecordError(operation, component, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, component, errorType).Inc()
}

// RecordTransition records entry into a provisioning state.
func RecordTransition(version, state string) {
	if !enabled.Load() {
		return
	}
	ProvisioningTransitions.WithLabelValues(version, state).Inc()
}

// Observe is a helper for the common defer pattern:
//
//	defer metrics.Observe(metrics.OpSign, metrics.ComponentSigner, time.Now(), &err)
func Observe(operation, component string, start time.Time, errp *error) {
	status := StatusSuccess
	if errp != nil && *errp != nil {
		status = StatusError
	}
	RecordOperation(operation, component, status, time.Since(start))
}
