package pkg

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type density string

func (d density) String() string { return string(d) }

func TestSentinelErrors(t *testing.T) {
	// Verify all sentinel errors are distinct
	errs := []error{
		ErrNotInitialized,
		ErrDetection,
		ErrNoDevice,
		ErrTimeout,
		ErrOutOfRange,
		ErrSessionActive,
		ErrNoSession,
		ErrClosed,
		ErrInvalidDensity,
		ErrInvalidParameter,
		ErrBufferTooSmall,
		ErrNotSupported,
		ErrReadOnly,
	}

	for i, err1 := range errs {
		if err1 == nil {
			t.Errorf("error %d is nil", i)
			continue
		}
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("error %d and %d are equal", i, j)
			}
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err     error
		wantMsg string
	}{
		{ErrNotInitialized, "device not initialized"},
		{ErrTimeout, "busy timeout"},
		{ErrNoDevice, "device not present"},
		{ErrSessionActive, "write session active"},
		{ErrOutOfRange, "address out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("error.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}

func TestDetectionError(t *testing.T) {
	tests := []struct {
		name      string
		err       *DetectionError
		noDevice  bool
		wantInMsg string
	}{
		{
			name:      "absent",
			err:       &DetectionError{Expected: density("AT45DB041"), Attempts: 10},
			noDevice:  true,
			wantInMsg: "no response after 10 attempts",
		},
		{
			name:      "mismatch",
			err:       &DetectionError{Expected: density("AT45DB041"), Found: density("AT45DB161"), Present: true, Attempts: 10},
			wantInMsg: "expected AT45DB041, found AT45DB161",
		},
		{
			name:      "invalid code",
			err:       &DetectionError{Expected: density("AT45DB041"), Present: true, Attempts: 3},
			wantInMsg: "invalid density code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error = tt.err
			if !errors.Is(err, ErrDetection) {
				t.Errorf("errors.Is(%v, ErrDetection) = false", err)
			}
			if got := errors.Is(err, ErrNoDevice); got != tt.noDevice {
				t.Errorf("errors.Is(%v, ErrNoDevice) = %v, want %v", err, got, tt.noDevice)
			}
			if !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Errorf("Error() = %q, want substring %q", err.Error(), tt.wantInMsg)
			}
		})
	}
}

func TestTimeoutError(t *testing.T) {
	err := fmt.Errorf("program page 3: %w",
		&TimeoutError{Op: "wait ready", Polls: 100, Elapsed: time.Millisecond})

	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false", err)
	}

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("errors.As(%v, *TimeoutError) = false", err)
	}
	if te.Polls != 100 {
		t.Errorf("Polls = %d, want 100", te.Polls)
	}
	if IsTimeout(ErrOutOfRange) {
		t.Error("IsTimeout(ErrOutOfRange) = true")
	}
}

func TestAddressError(t *testing.T) {
	err := &AddressError{Addr: 0x84000, Length: 1, Limit: 0x84000}
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("errors.Is(%v, ErrOutOfRange) = false", err)
	}
	if want := "address 0x084000+1 out of range"; !strings.Contains(err.Error(), want) {
		t.Errorf("Error() = %q, want substring %q", err.Error(), want)
	}
}
