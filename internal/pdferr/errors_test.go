package pdferr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := Wrap(ParseFailure, "merge", fs.ErrNotExist)
	wrapped := fmt.Errorf("request: %w", base)

	assert.Equal(t, ParseFailure, KindOf(wrapped))
	assert.True(t, Is(wrapped, ParseFailure))
	assert.True(t, errors.Is(wrapped, fs.ErrNotExist))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, ParseFailure))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(IOFailure, "copy", nil))
}

func TestErrorMessage(t *testing.T) {
	err := Errorf(InvalidInput, "split", "unknown mode %q", "odd")
	assert.Equal(t, `split: unknown mode "odd"`, err.Error())
	assert.Equal(t, "compress: external_tool_missing", (&Error{Kind: ExternalToolMissing, Op: "compress"}).Error())
	assert.Equal(t, "no_output_produced", NoOutputProduced.String())
}
