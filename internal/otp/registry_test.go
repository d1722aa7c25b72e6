// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package otp_test

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/adminkit/internal/otp"
	"github.com/adminkit/adminkit/pkg/errutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_Issue(t *testing.T) {
	clock := newFakeClock()
	reg := otp.NewRegistry(otp.WithClock(clock.Now))

	t.Run("produces six digits with five minute expiry", func(t *testing.T) {
		password, err := reg.Issue(otp.PurposePasswordReset, "alice@example.com")
		require.NoError(t, err)

		assert.Len(t, password.Code, otp.CodeLength)
		for _, c := range password.Code {
			assert.True(t, c >= '0' && c <= '9', "non-digit %q in code", c)
		}
		assert.Equal(t, clock.Now().Add(5*time.Minute), password.ExpiresAt)
	})

	t.Run("rejects unknown purpose", func(t *testing.T) {
		_, err := reg.Issue(otp.Purpose("bogus"), "alice@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "OTP_INVALID_PURPOSE")
	})

	t.Run("reports random source failure", func(t *testing.T) {
		broken := otp.NewRegistry(otp.WithRandom(bytes.NewReader(nil)))
		_, err := broken.Issue(otp.PurposePasswordReset, "alice@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "OTP_GENERATE_FAILED")
	})
}

func TestRegistry_Validate(t *testing.T) {
	const subject = "alice@example.com"

	t.Run("accepts the issued code", func(t *testing.T) {
		reg := otp.NewRegistry()
		password, err := reg.Issue(otp.PurposeUserRegistration, subject)
		require.NoError(t, err)

		assert.Equal(t, otp.OK, reg.Validate(subject, otp.PurposeUserRegistration, password.Code))
		// Validation does not consume the code.
		assert.Equal(t, otp.OK, reg.Validate(subject, otp.PurposeUserRegistration, password.Code))
	})

	t.Run("unknown subject is not found", func(t *testing.T) {
		reg := otp.NewRegistry()
		assert.Equal(t, otp.NotFound, reg.Validate(subject, otp.PurposePasswordReset, "123456"))
	})

	t.Run("other purpose is not found", func(t *testing.T) {
		reg := otp.NewRegistry()
		password, err := reg.Issue(otp.PurposeUserRegistration, subject)
		require.NoError(t, err)

		assert.Equal(t, otp.NotFound, reg.Validate(subject, otp.PurposePasswordReset, password.Code))
	})

	t.Run("wrong code is mismatched", func(t *testing.T) {
		reg := otp.NewRegistry(otp.WithRandom(bytes.NewReader(bytes.Repeat([]byte{0}, 64))))
		_, err := reg.Issue(otp.PurposePasswordReset, subject)
		require.NoError(t, err)

		assert.Equal(t, otp.Mismatched, reg.Validate(subject, otp.PurposePasswordReset, "99999x"))
	})

	t.Run("second issue invalidates the first code", func(t *testing.T) {
		reg := otp.NewRegistry()
		var first, second otp.OneTimePassword
		var err error
		// Retry until the codes differ; equal codes are a 1 in a million event.
		for first.Code == second.Code {
			first, err = reg.Issue(otp.PurposePasswordReset, subject)
			require.NoError(t, err)
			second, err = reg.Issue(otp.PurposePasswordReset, subject)
			require.NoError(t, err)
		}

		assert.Equal(t, otp.Mismatched, reg.Validate(subject, otp.PurposePasswordReset, first.Code))
		assert.Equal(t, otp.OK, reg.Validate(subject, otp.PurposePasswordReset, second.Code))
	})
}

func TestRegistry_Expiry(t *testing.T) {
	const subject = "alice@example.com"
	clock := newFakeClock()
	reg := otp.NewRegistry(otp.WithClock(clock.Now))

	password, err := reg.Issue(otp.PurposePasswordReset, subject)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, otp.OK, reg.Validate(subject, otp.PurposePasswordReset, password.Code), "valid up to the expiry instant")

	clock.Advance(time.Nanosecond)
	assert.Equal(t, otp.Expired, reg.Validate(subject, otp.PurposePasswordReset, password.Code))
	assert.Equal(t, otp.Expired, reg.Validate(subject, otp.PurposePasswordReset, "000000"), "expiry is checked before the code")

	clock.Advance(time.Hour)
	assert.Equal(t, otp.Expired, reg.Validate(subject, otp.PurposePasswordReset, password.Code))
}

func TestRegistry_WithTTL(t *testing.T) {
	clock := newFakeClock()
	reg := otp.NewRegistry(otp.WithClock(clock.Now), otp.WithTTL(time.Minute))
	assert.Equal(t, time.Minute, reg.TTL())

	password, err := reg.Issue(otp.PurposePasswordReset, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Minute), password.ExpiresAt)

	ignored := otp.NewRegistry(otp.WithTTL(-time.Second))
	assert.Equal(t, otp.DefaultTTL, ignored.TTL())
}

func TestRegistry_Delete(t *testing.T) {
	const subject = "alice@example.com"
	reg := otp.NewRegistry()

	reset, err := reg.Issue(otp.PurposePasswordReset, subject)
	require.NoError(t, err)
	verify, err := reg.Issue(otp.PurposeUserRegistration, subject)
	require.NoError(t, err)

	reg.Delete(subject)

	assert.Equal(t, otp.NotFound, reg.Validate(subject, otp.PurposePasswordReset, reset.Code))
	assert.Equal(t, otp.NotFound, reg.Validate(subject, otp.PurposeUserRegistration, verify.Code))
	assert.Equal(t, 0, reg.Len())

	assert.NotPanics(t, func() { reg.Delete(subject) })
	assert.NotPanics(t, func() { reg.Delete("nobody@example.com") })
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := otp.NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := fmt.Sprintf("user%d@example.com", i%5)
			password, err := reg.Issue(otp.PurposePasswordReset, subject)
			assert.NoError(t, err)
			reg.Validate(subject, otp.PurposePasswordReset, password.Code)
			if i%7 == 0 {
				reg.Delete(subject)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, reg.Len(), 5)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", otp.OK.String())
	assert.Equal(t, "not_found", otp.NotFound.String())
	assert.Equal(t, "expired", otp.Expired.String())
	assert.Equal(t, "mismatched", otp.Mismatched.String())
	assert.Equal(t, "unknown", otp.Outcome(42).String())
}
