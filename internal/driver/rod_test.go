package driver

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestCloseAll_ClosesContextAfterPageFailure(t *testing.T) {
	page := &closeRecorder{err: errors.New("target closed")}
	incognito := &closeRecorder{}

	err := closeAll(page, incognito)

	assert.True(t, page.closed)
	assert.True(t, incognito.closed, "browser context must be disposed even when the page close fails")
	assert.EqualError(t, err, "target closed")
}

func TestCloseAll_JoinsErrors(t *testing.T) {
	first := errors.New("page")
	second := errors.New("context")

	err := closeAll(&closeRecorder{err: first}, &closeRecorder{err: second})

	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.NoError(t, closeAll([]io.Closer{}...))
}
