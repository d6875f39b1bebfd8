// Copyright 2024 Joel Montavon.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package poolmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

type fakePool struct {
	failuresLeft int
	failErr      error
	acquired     int
}

func (f *fakePool) Acquire(ctx context.Context) (*Lease, error) {
	f.acquired++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, f.failErr
	}
	return &Lease{conn: nil, release: func(error) {}}, nil
}

func (f *fakePool) Close() {}

func TestAcquireWithRetry_RetriesConnectionErrors(t *testing.T) {
	p := &fakePool{failuresLeft: 2, failErr: fherrors.ErrPoolBroken.New("reset")}
	cfg := RetryConfig{BaseDelay: 0, MaxDelay: 0, MaxAttempts: 5}

	lease, err := AcquireWithRetry(context.Background(), p, cfg)

	require.NoError(t, err)
	assert.NotNil(t, lease)
	assert.Equal(t, 3, p.acquired)
}

func TestAcquireWithRetry_DoesNotRetryNonRetryable(t *testing.T) {
	p := &fakePool{failuresLeft: 1, failErr: fherrors.ErrExecution.New("syntax error")}
	cfg := RetryConfig{BaseDelay: 0, MaxDelay: 0, MaxAttempts: 5}

	lease, err := AcquireWithRetry(context.Background(), p, cfg)

	require.Error(t, err)
	assert.Nil(t, lease)
	assert.Equal(t, 1, p.acquired)
}

func TestAcquireWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	p := &fakePool{failuresLeft: 100, failErr: fherrors.ErrPoolExhausted.New()}
	cfg := RetryConfig{BaseDelay: 0, MaxDelay: 0, MaxAttempts: 2}

	lease, err := AcquireWithRetry(context.Background(), p, cfg)

	require.Error(t, err)
	assert.Nil(t, lease)
}
