package internal

import (
	"context"
	"fmt"

	schematicgo "github.com/schematichq/schematic-go"
	schematicclient "github.com/schematichq/schematic-go/client"
	"github.com/schematichq/schematic-go/option"
)

// UsageTracker records feature consumption for billing and entitlements
type UsageTracker interface {
	Track(ctx context.Context, feature Feature, userID string) error
}

// DefaultUsageEndpoint is the Schematic API base URL
const DefaultUsageEndpoint = "https://api.schematichq.com"

// schematicEvents is the part of the Schematic client the tracker uses
type schematicEvents interface {
	Track(ctx context.Context, body *schematicgo.EventBodyTrack)
	Close()
}

// SchematicTracker sends usage events to Schematic. The client buffers
// events and flushes them in the background and on Close.
type SchematicTracker struct {
	client schematicEvents
}

// NewSchematicTracker creates a tracker for the Schematic API at endpoint
func NewSchematicTracker(endpoint, apiKey string) *SchematicTracker {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &SchematicTracker{client: schematicclient.NewSchematicClient(opts...)}
}

// Track queues one track event; company and user are both the user's ID
func (t *SchematicTracker) Track(ctx context.Context, feature Feature, userID string) error {
	if userID == "" {
		return fmt.Errorf("tracking %s: user ID is required", feature)
	}
	t.client.Track(ctx, &schematicgo.EventBodyTrack{
		Event:   feature.String(),
		Company: map[string]string{"id": userID},
		User:    map[string]string{"id": userID},
	})
	return nil
}

// Close flushes buffered events
func (t *SchematicTracker) Close() error {
	t.client.Close()
	return nil
}

// MultiTracker records an event with every tracker in order, stopping at the first error
type MultiTracker []UsageTracker

func (m MultiTracker) Track(ctx context.Context, feature Feature, userID string) error {
	for _, t := range m {
		if err := t.Track(ctx, feature, userID); err != nil {
			return err
		}
	}
	return nil
}
