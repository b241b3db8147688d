// Package pubsub is the Google Pub/Sub transport for outbox events.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client publishes with ordering keys, so subscribers that enable message
// ordering see an aggregate's events in commit order.
type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and fails fast when any of topics is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		projectID:  projectID,
		topics:     topics,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", topics), "pubsub client initialized")
	}
	return c, nil
}

// Publish blocks until the server acks. key becomes the ordering key and is
// also copied into the "key" attribute for consumers that read it there.
func (c *Client) Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error {
	pub, err := c.publisher(topic)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{Data: data, Attributes: attrs, OrderingKey: key}
	if key != "" {
		msg.Attributes = make(map[string]string, len(attrs)+1)
		for k, v := range attrs {
			msg.Attributes[k] = v
		}
		msg.Attributes["key"] = key
	}
	if _, err := pub.Publish(ctx, msg).Get(ctx); err != nil {
		// a failed ordered publish pauses the key until resumed
		if key != "" {
			pub.ResumePublish(key)
		}
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, errNotInitialized
	}
	name := topicResourceName(c.projectID, topic)
	if name == "" {
		return nil, fmt.Errorf("invalid topic %q", topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.client.Publisher(name)
		pub.EnableMessageOrdering = true
		c.publishers[name] = pub
	}
	return pub, nil
}

// Ping looks up every topic through the admin API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: topicResourceName(c.projectID, topic),
		})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %q does not exist", topic)
		case err != nil:
			return fmt.Errorf("checking topic %q: %w", topic, err)
		}
	}
	return nil
}

// Close flushes pending publishes, then releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// topicResourceName expands a short topic id; full resource names pass
// through unchanged.
func topicResourceName(projectID, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	case projectID == "":
		return ""
	}
	return "projects/" + projectID + "/topics/" + topic
}
