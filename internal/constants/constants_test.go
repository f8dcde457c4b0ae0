package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"PENDING_AUDIT", STATUS_PENDING_AUDIT, false},
		{"pending_audit", STATUS_PENDING_AUDIT, false},
		{"待调度员审核", STATUS_PENDING_AUDIT, false},
		{"待区域调度员审核", STATUS_PENDING_AUDIT, false},
		{"任务结束", STATUS_COMPLETED, false},
		{" CANCELLED ", STATUS_CANCELLED, false},
		{"已完成", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTrack(t *testing.T) {
	for _, in := range []string{"A", "a", "TRACK_A", "轨道A"} {
		got, err := ParseTrack(in)
		require.NoError(t, err, in)
		assert.Equal(t, TRACK_A, got)
	}
	got, err := ParseTrack("B")
	require.NoError(t, err)
	assert.Equal(t, TRACK_B, got)

	_, err = ParseTrack("C")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	got, err := ParseRole("SUPPLIER")
	require.NoError(t, err)
	assert.Equal(t, ROLE_SUPPLIER, got)

	got, err = ParseRole("区域调度员")
	require.NoError(t, err)
	assert.Equal(t, ROLE_REGIONAL_DISPATCHER, got)

	_, err = ParseRole("driver")
	assert.Error(t, err)
}

func TestParseAuditResult(t *testing.T) {
	r, err := ParseAuditResult("通过")
	require.NoError(t, err)
	assert.Equal(t, AUDIT_APPROVE, r)

	r, err = ParseAuditResult("Reject")
	require.NoError(t, err)
	assert.Equal(t, AUDIT_REJECT, r)

	_, err = ParseAuditResult("maybe")
	assert.Error(t, err)
}

func TestStatusCodesAreClosed(t *testing.T) {
	assert.Len(t, AllStatuses, 8)
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), s)
		back, err := ParseStatus(s.Code())
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
	assert.True(t, STATUS_COMPLETED.IsTerminal())
	assert.True(t, STATUS_CANCELLED.IsTerminal())
	assert.False(t, STATUS_SUPPLIER_CONFIRMED.IsTerminal())
	assert.False(t, Status("已完成").Valid())
}
