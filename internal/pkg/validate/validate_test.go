package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type messageInput struct {
	Origin string `validate:"required,origin"`
	Pin    string `validate:"omitempty,len=6,numeric"`
}

func TestStruct_OriginTag(t *testing.T) {
	assert.NoError(t, Struct(messageInput{Origin: "https://www.facebook.com"}))

	err := Struct(messageInput{Origin: "facebook.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Origin' failed 'origin'")
}

func TestStruct_JoinsMessages(t *testing.T) {
	err := Struct(messageInput{Pin: "12ab"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Origin' failed 'required'")
	assert.Contains(t, err.Error(), "'Pin' failed 'len'")
}
