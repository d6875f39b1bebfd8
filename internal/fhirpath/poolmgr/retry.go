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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// RetryConfig mirrors config.RetryConfig without importing the config
// package (poolmgr is lower-level and should not depend on it).
type RetryConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts uint64
}

// AcquireWithRetry acquires a connection, retrying connection-level errors
// (pool exhaustion, broken connection, acquire timeout) with exponential
// backoff. Query/data errors never reach here — Acquire only fails for
// connection-level reasons, so every error surfaced by p.Acquire is a retry
// candidate unless fherrors.Retryable says otherwise.
func AcquireWithRetry(ctx context.Context, p Pool, cfg RetryConfig) (*Lease, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.BaseDelay
	eb.MaxInterval = cfg.MaxDelay
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, cfg.MaxAttempts), ctx)

	var lease *Lease
	attempt := 0
	op := func() error {
		attempt++
		l, err := p.Acquire(ctx)
		if err != nil {
			if !fherrors.Retryable(err) {
				return backoff.Permanent(err)
			}
			logrus.WithError(err).WithField("attempt", attempt).Warn("poolmgr: acquire failed, retrying")
			return err
		}
		lease = l
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return lease, nil
}
