// Package notify announces newly stored issues to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/issueradar/crawler/internal/tracker"
)

// PubSubNotifier publishes one message per new issue to a Pub/Sub topic.
// Publishing is fire-and-forget; the client batches and retries internally.
type PubSubNotifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSub creates a Pub/Sub client and checks that the topic exists.
// It authenticates using Application Default Credentials.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubNotifier, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &PubSubNotifier{client: client, topic: topic, logger: logger}, nil
}

// NotifyIssue publishes the issue's identity fields. Errors are returned for
// logging only; callers must never fail an item on a notification error.
func (n *PubSubNotifier) NotifyIssue(ctx context.Context, issue tracker.Issue) error {
	payload, err := json.Marshal(map[string]string{
		"issue_id":       issue.ID,
		"application_id": issue.ApplicationID,
		"severity":       string(issue.Severity),
		"source_url":     issue.SourceURL,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{Data: payload})
	// Fire and forget; surface failures in the background log only.
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			n.logger.Warn("issue notification failed",
				zap.String("issue_id", issue.ID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Close flushes pending messages and releases the client.
func (n *PubSubNotifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// Noop is a Notifier that drops every notification. Used when notifications
// are not configured.
type Noop struct{}

// NotifyIssue does nothing.
func (Noop) NotifyIssue(context.Context, tracker.Issue) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }
