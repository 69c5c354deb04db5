package filedepot_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filedepot/filedepot"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		code     int
		sentinel error
	}{
		{400, filedepot.ErrInvalidInput},
		{403, filedepot.ErrForbidden},
		{404, filedepot.ErrNotFound},
		{500, filedepot.ErrInternal},
		{502, filedepot.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code %d", tt.code), func(t *testing.T) {
			err := filedepot.NewError(tt.code, "boom")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, filedepot.Code(err))
			assert.Equal(t, fmt.Sprintf("[%d] boom", tt.code), err.Error())
		})
	}
}

func TestCode(t *testing.T) {
	t.Run("coded error through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", filedepot.NewError(404, "gone"))
		assert.Equal(t, 404, filedepot.Code(err))
	})

	t.Run("bare sentinels", func(t *testing.T) {
		assert.Equal(t, 404, filedepot.Code(filedepot.ErrNotFound))
		assert.Equal(t, 400, filedepot.Code(filedepot.ErrInvalidInput))
		assert.Equal(t, 403, filedepot.Code(filedepot.ErrForbidden))
		assert.Equal(t, 500, filedepot.Code(filedepot.ErrInternal))
	})

	t.Run("unknown errors are internal", func(t *testing.T) {
		assert.Equal(t, 500, filedepot.Code(errors.New("anything")))
	})
}

func TestHookRejectedError(t *testing.T) {
	err := &filedepot.HookRejectedError{Reason: "not today"}

	assert.Equal(t, "not today", err.Error())
	assert.ErrorIs(t, err, filedepot.ErrForbidden)
	assert.Equal(t, 403, filedepot.Code(err))

	wrapped := fmt.Errorf("prepare upload: %w", err)
	var rejected *filedepot.HookRejectedError
	assert.ErrorAs(t, wrapped, &rejected)
	assert.Equal(t, 403, filedepot.Code(wrapped))
}
