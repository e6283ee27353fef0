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

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsEnabled(t *testing.T) {
	assert.True(t, IsEnabled())
	Disable()
	assert.False(t, IsEnabled())
	Enable()
	assert.True(t, IsEnabled())
}

func TestRecordOperation(t *testing.T) {
	Enable()
	OperationsTotal.Reset()
	OperationDuration.Reset()

	RecordOperation(OpGenerate, ComponentKeyStore, StatusSuccess, 10*time.Millisecond)
	RecordOperation(OpGenerate, ComponentKeyStore, StatusSuccess, 20*time.Millisecond)
	RecordOperation(OpSign, ComponentSigner, StatusError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		OperationsTotal.WithLabelValues(OpGenerate, ComponentKeyStore, StatusSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(OperationsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(OperationDuration))
}

func TestRecordWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()
	ErrorsTotal.Reset()
	ProvisioningTransitions.Reset()

	RecordError(OpDecrypt, ComponentEnvelope, "bad_padding")
	RecordTransition("2", "failed")

	assert.Equal(t, 0, testutil.CollectAndCount(ErrorsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(ProvisioningTransitions))
}

func TestObserve(t *testing.T) {
	Enable()
	OperationsTotal.Reset()

	func() (err error) {
		defer Observe(OpEncrypt, ComponentEnvelope, time.Now(), &err)
		return errors.New("failed")
	}()
	func() (err error) {
		defer Observe(OpEncrypt, ComponentEnvelope, time.Now(), &err)
		return nil
	}()

	assert.Equal(t, 1.0, testutil.ToFloat64(
		OperationsTotal.WithLabelValues(OpEncrypt, ComponentEnvelope, StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		OperationsTotal.WithLabelValues(OpEncrypt, ComponentEnvelope, StatusSuccess)))
}
