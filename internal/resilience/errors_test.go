package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Success(t *testing.T) {
	assert.Nil(t, Classify("resy", 200, nil))
	assert.Nil(t, Classify("resy", 201, nil))
	assert.Nil(t, Classify("resy", 302, nil))
}

func TestClassify_Transient(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503} {
		err := Classify("resy", status, nil)
		require.NotNil(t, err, "status %d", status)
		assert.Equal(t, Transient, err.Kind, "status %d", status)
	}
}

func TestClassify_NetworkErrorIsTransient(t *testing.T) {
	err := Classify("opentable", 0, errors.New("connection refused"))
	require.NotNil(t, err)
	assert.Equal(t, Transient, err.Kind)
}

func TestClassify_Auth(t *testing.T) {
	err := Classify("resy", 401, nil)
	require.NotNil(t, err)
	assert.Equal(t, Auth, err.Kind)
}

func TestClassify_Permanent(t *testing.T) {
	for _, status := range []int{400, 403, 404, 422} {
		err := Classify("resy", status, nil)
		require.NotNil(t, err, "status %d", status)
		assert.Equal(t, Permanent, err.Kind, "status %d", status)
	}
}

func TestKindOf_WrappedError(t *testing.T) {
	inner := Classify("resy", 503, nil)
	wrapped := fmt.Errorf("fetch slots: %w", inner)
	assert.Equal(t, Transient, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, Transient))
}

func TestKindOf_UnknownErrorIsPermanent(t *testing.T) {
	assert.Equal(t, Permanent, KindOf(errors.New("boom")))
}

func TestSchemaChanged(t *testing.T) {
	err := SchemaChanged("opentable", "missing availability shape")
	assert.Equal(t, SchemaChange, err.Kind)
	assert.Contains(t, err.Error(), "schema_change")
}
