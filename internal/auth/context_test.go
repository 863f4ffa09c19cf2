package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectFromContext(t *testing.T) {
	_, ok := SubjectFromContext(context.Background())
	assert.False(t, ok)

	subject, ok := SubjectFromContext(WithSubject(context.Background(), "ops"))
	assert.True(t, ok)
	assert.Equal(t, "ops", subject)

	_, ok = SubjectFromContext(WithSubject(context.Background(), ""))
	assert.False(t, ok, "empty subject is not authenticated")
}
