package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/config"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// ElasticClient provides integration with Elasticsearch for the reporting
// read model over shipment logs
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// Enabled reports whether indexing is configured
func (c *ElasticClient) Enabled() bool {
	return c.enabled
}

// IndexShipmentLog indexes one custody audit record
func (c *ElasticClient) IndexShipmentLog(ctx context.Context, entry *models.ShipmentLog) error {
	if !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":              entry.ID.String(),
		"shipment_id":     entry.ShipmentID.String(),
		"organization_id": entry.OrganizationID.String(),
		"action":          entry.Action,
		"notes":           entry.Notes,
		"created_at":      entry.CreatedAt,
	}

	if entry.Temperature != nil {
		doc["temperature"] = *entry.Temperature
	}

	// The location snapshot is stored verbatim; pass it through as-is.
	if len(entry.Location) > 0 {
		var location interface{}
		if err := json.Unmarshal(entry.Location, &location); err == nil {
			doc["location"] = location
		} else {
			log.Warn().Err(err).Str("log_id", entry.ID.String()).Msg("could not decode log location snapshot")
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal shipment log document")
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: entry.ID.String(),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to index shipment log")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("error indexing shipment log: %s", res.String())
	}

	return nil
}
