package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging. A client built without credentials
// is a no-op; callers can check IsEnabled.
type Client struct {
	client *messaging.Client
}

// NewClient initializes FCM from a service account file. An empty path
// returns a disabled client rather than an error so push stays optional.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	if credentialsPath == "" {
		return &Client{}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &Client{client: client}, nil
}

// SendMulticast pushes one notification to every token.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if c.client == nil || len(tokens) == 0 {
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "call_alerts",
				Priority:  messaging.PriorityHigh,
			},
		},
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast: %w", err)
	}
	if response.FailureCount > 0 {
		return fmt.Errorf("%d of %d notifications failed", response.FailureCount, len(tokens))
	}
	return nil
}

// IsEnabled reports whether the client was built with credentials.
func (c *Client) IsEnabled() bool {
	return c.client != nil
}
