package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "plain",
			err:  errNotCreated(),
			want: "NOT_CREATED: document has not been created yet",
		},
		{
			name: "invalid fields",
			err:  newValidationError([]string{"name", "age"}),
			want: "VALIDATION_FAILED: document is invalid (invalid=name,age)",
		},
		{
			name: "field",
			err:  &Error{Code: CodeIndexOutOfRange, Message: "tags has 2 elements", Field: "tags.5.label"},
			want: "INDEX_OUT_OF_RANGE: tags has 2 elements (field=tags.5.label)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Predicates(t *testing.T) {
	config := newConfigError(CodeMissingSchema, "no schema")
	wrapped := fmt.Errorf("init contacts: %w", config)

	assert.True(t, IsConfigError(wrapped), "predicates see through wrapping")
	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsValidationError(wrapped))

	validation := newValidationError([]string{"name"})
	assert.True(t, IsValidationError(validation))
	assert.False(t, IsFatal(validation))
	assert.False(t, IsNotCreated(validation))

	assert.True(t, IsNotCreated(errNotCreated()))
	assert.True(t, IsUninitialized(errUninitialized()))
	assert.True(t, IsPathError(&Error{Code: CodeContainerMissing}))
	assert.True(t, IsNotFound(&Error{Code: CodeNotFound}))
	assert.True(t, IsAlreadyCreated(errAlreadyCreated("doc-1")))
	assert.False(t, IsNotCreated(errAlreadyCreated("doc-1")))

	plain := errors.New("boom")
	assert.False(t, IsFatal(plain))
	assert.False(t, IsPathError(plain))
	assert.False(t, IsFatal(nil))
}
