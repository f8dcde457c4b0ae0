package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindPermissionDenied, http.StatusForbidden},
		{KindInvalidTransition, http.StatusConflict},
		{KindInvalidState, http.StatusConflict},
		{KindConflict, http.StatusConflict},
		{KindValidation, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	base := Conflict("该任务已存在车辆信息").WithField("task_id")
	wrapped := fmt.Errorf("confirm: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
	assert.Equal(t, "task_id", FieldOf(wrapped))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindConflict}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: KindNotFound}))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestErrorString(t *testing.T) {
	e := Wrap(KindConflict, "stale", errors.New("0 rows"))
	assert.Equal(t, "[Conflict] stale: 0 rows", e.Error())
	assert.Equal(t, "[ValidationError] bad (volume)", Validation("volume", "bad").Error())
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "任务不存在", PublicMessage(fmt.Errorf("get: %w", NotFound("任务不存在"))))
	assert.Equal(t, "服务器内部错误", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "服务器内部错误", PublicMessage(Wrap(KindInternal, "secret detail", nil)))
}
