package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/shop/topics/sf-order-events", topicResourceName("shop", "sf-order-events"))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("shop", "projects/other/topics/x"))
	assert.Empty(t, topicResourceName("shop", "  "))
	assert.Empty(t, topicResourceName("", "orders"))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "  "}, []string{"orders"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Publish(context.Background(), "orders", "order-1", nil, nil), errNotInitialized)
}
