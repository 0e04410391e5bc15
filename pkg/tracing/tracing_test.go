package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceAttributes(t *testing.T) {
	got := ParseResourceAttributes(" service.namespace=mediaintake, team = media ,broken,=x,")
	assert.Equal(t, map[string]string{
		"service.namespace": "mediaintake",
		"team":              "media",
	}, got)
	assert.Empty(t, ParseResourceAttributes(""))
}

func TestInit_NoEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
