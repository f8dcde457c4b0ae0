package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchtrack/internal/constants"
)

func TestNullableJSON(t *testing.T) {
	type row struct {
		S NullString  `json:"s"`
		I NullInt64   `json:"i"`
		F NullFloat64 `json:"f"`
		T NullTime    `json:"t"`
	}

	b, err := json.Marshal(row{S: NewNullString(""), I: NewNullInt64(7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":null,"i":7,"f":null,"t":null}`, string(b))

	var r row
	require.NoError(t, json.Unmarshal([]byte(`{"s":"京A12345","i":null,"f":12.5,"t":"2024-10-15T08:30:00Z"}`), &r))
	assert.True(t, r.S.Valid)
	assert.Equal(t, "京A12345", r.S.String)
	assert.False(t, r.I.Valid)
	assert.True(t, r.F.Valid)
	assert.InDelta(t, 12.5, r.F.Float64, 0.0001)
	assert.True(t, r.T.Valid)
	assert.Equal(t, time.Date(2024, 10, 15, 8, 30, 0, 0, time.UTC), r.T.Time)
}

func TestFormatStatusChange(t *testing.T) {
	got := FormatStatusChange(constants.STATUS_SUPPLIER_RESPONDED, constants.STATUS_WORKSHOP_VERIFIED)
	assert.Equal(t, "供应商已响应→车间已核查", got)
}

func TestCloneIsIndependent(t *testing.T) {
	task := &DispatchTask{TaskID: "T20241015001", Status: constants.STATUS_PENDING_AUDIT}
	c := task.Clone()
	c.Status = constants.STATUS_CANCELLED
	assert.Equal(t, constants.STATUS_PENDING_AUDIT, task.Status)
	assert.False(t, c.HasHandler())
}
