package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/KejDhruv-Pharbit/Pharbit/config"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// CacheClient defines the interface for cache operations
type CacheClient interface {
	GetShipmentByTrackingCode(ctx context.Context, code string) (*models.Shipment, error)
	SetShipment(ctx context.Context, shipment *models.Shipment) error
	DeleteShipmentTrackingCode(ctx context.Context, code string) error

	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	SetOrganization(ctx context.Context, org *models.Organization) error

	FlushAll(ctx context.Context) error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		ttl:     time.Hour,
	}, nil
}

// Prefix keys to avoid collisions
func shipmentTrackingKey(code string) string {
	return fmt.Sprintf("shipment:tracking:%s", code)
}

func organizationKey(id string) string {
	return fmt.Sprintf("organization:%s", id)
}

// GetShipmentByTrackingCode retrieves a shipment from cache by tracking code
func (c *RedisClient) GetShipmentByTrackingCode(ctx context.Context, code string) (*models.Shipment, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, shipmentTrackingKey(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var shipment models.Shipment
	if err := json.Unmarshal(data, &shipment); err != nil {
		return nil, err
	}

	return &shipment, nil
}

// SetShipment caches a shipment under its current tracking code
func (c *RedisClient) SetShipment(ctx context.Context, shipment *models.Shipment) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(shipment)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, shipmentTrackingKey(shipment.TrackingCode), data, c.ttl).Err()
}

// DeleteShipmentTrackingCode removes a tracking-code entry from cache.
// Called on every custody mutation because the code rotates on forward.
func (c *RedisClient) DeleteShipmentTrackingCode(ctx context.Context, code string) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, shipmentTrackingKey(code)).Err()
}

// GetOrganization retrieves an organization from cache
func (c *RedisClient) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, organizationKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var org models.Organization
	if err := json.Unmarshal(data, &org); err != nil {
		return nil, err
	}

	return &org, nil
}

// SetOrganization caches an organization
func (c *RedisClient) SetOrganization(ctx context.Context, org *models.Organization) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(org)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, organizationKey(org.ID.String()), data, c.ttl).Err()
}

// FlushAll clears the entire cache
func (c *RedisClient) FlushAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	return c.client.FlushAll(ctx).Err()
}
