package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/config"
)

// Client defines the interface for publishing custody events
type Client interface {
	PublishMessage(ctx context.Context, message interface{}, queueName string) error
	Close(ctx context.Context) error
}

// AzureServiceBusClient implements Client using Azure Service Bus
type AzureServiceBusClient struct {
	client  *azservicebus.Client
	enabled bool
}

// NewClient creates a new message bus client. When disabled it returns a
// no-op client so custody transitions never depend on the bus being up.
func NewClient(cfg *config.AzureConfig) (Client, error) {
	if !cfg.Enabled || cfg.QueueConnStr == "" {
		return &AzureServiceBusClient{enabled: false}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service bus client: %w", err)
	}

	return &AzureServiceBusClient{
		client:  client,
		enabled: true,
	}, nil
}

// PublishMessage publishes a message to a queue
func (c *AzureServiceBusClient) PublishMessage(ctx context.Context, message interface{}, queueName string) error {
	if !c.enabled {
		return nil
	}

	sender, err := c.client.NewSender(queueName, nil)
	if err != nil {
		return fmt.Errorf("failed to create sender for queue %s: %w", queueName, err)
	}
	defer sender.Close(ctx)

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sbMessage := &azservicebus.Message{
		Body: messageBytes,
	}

	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Close closes the message bus client
func (c *AzureServiceBusClient) Close(ctx context.Context) error {
	if !c.enabled || c.client == nil {
		return nil
	}

	return c.client.Close(ctx)
}

// RetryWithBackoff retries an operation with exponential backoff
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			return nil
		}

		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Message bus operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return err
}
