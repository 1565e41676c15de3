package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAudit struct {
	events []OverrideEvent
	err    error
}

func (r *recordingAudit) RecordOverride(ctx context.Context, ev OverrideEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func riskyVerdict() *Verdict {
	return &Verdict{
		Address:  recipient,
		IsRisky:  true,
		State:    StateRisky,
		RiskType: "Scam",
		Reasons:  []string{"red tag: Scam"},
	}
}

func TestGateBlocksRiskyWithoutForce(t *testing.T) {
	audit := &recordingAudit{}
	d := NewBreaker(audit).Gate(context.Background(), riskyVerdict(), false)

	assert.False(t, d.Proceed)
	require.NotNil(t, d.Blocked)
	assert.True(t, d.Blocked.Blocked)
	assert.False(t, d.Blocked.Error)
	assert.Equal(t, CodeRiskBlocked, d.Blocked.Code)
	assert.Contains(t, d.Blocked.Reasons, "red tag: Scam")
	assert.Contains(t, d.Blocked.Hint, "force_execution=true")
	assert.Empty(t, audit.events)
}

func TestGateForceRecordsOverride(t *testing.T) {
	audit := &recordingAudit{}
	b := NewBreaker(audit)
	b.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	d := b.Gate(context.Background(), riskyVerdict(), true, WithTransfer("TFwpzzQoGTJW4hUhGKKUZe4wSVCgyMoodZ", "10", "USDT"))

	assert.True(t, d.Proceed)
	assert.True(t, d.Overridden)
	assert.Nil(t, d.Blocked)
	require.Len(t, audit.events, 1)
	ev := audit.events[0]
	assert.Equal(t, recipient, ev.Recipient)
	assert.Equal(t, "USDT", ev.Token)
	assert.Equal(t, "10", ev.Amount)
	assert.Equal(t, "Scam", ev.RiskType)
	assert.Equal(t, 2026, ev.At.Year())
}

func TestGateAuditFailureStillProceeds(t *testing.T) {
	audit := &recordingAudit{err: errors.New("broker down")}
	d := NewBreaker(audit).Gate(context.Background(), riskyVerdict(), true)
	assert.True(t, d.Proceed)
	assert.Len(t, audit.events, 1)
}

func TestGateNotRiskyAlwaysProceeds(t *testing.T) {
	tests := []struct {
		state State
		code  string
	}{
		{StateSafe, ""},
		{StateUnknown, CodeRiskUnknown},
		{StatePartiallyVerified, CodeRiskPartiallyVerified},
	}

	for _, tt := range tests {
		for _, force := range []bool{false, true} {
			v := &Verdict{Address: recipient, State: tt.state}
			d := NewBreaker(nil).Gate(context.Background(), v, force)

			assert.True(t, d.Proceed, string(tt.state))
			assert.False(t, d.Overridden)
			assert.Nil(t, d.Blocked)
			if tt.code == "" {
				assert.Nil(t, d.Warning)
			} else {
				require.NotNil(t, d.Warning)
				assert.Equal(t, tt.code, d.Warning.Code)
			}
		}
	}
}
