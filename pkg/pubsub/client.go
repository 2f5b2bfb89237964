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

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/gcp"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

// Client wraps the Pub/Sub v2 client with the loyalty topic and analytics
// subscription resolved against the configured project.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	ping      func(context.Context) error

	mu      sync.Mutex
	loyalty *pubsub.Publisher
}

var (
	errProjectIDRequired  = errors.New("gcp project id is required")
	errTopicRequired      = errors.New("pubsub loyalty topic is required")
	errSubscriptionNeeded = errors.New("pubsub analytics subscription is required")
)

// Mode selects which resources NewClient verifies on startup.
type Mode int

const (
	// ModePublisher checks the loyalty topic.
	ModePublisher Mode = iota
	// ModeSubscriber checks the analytics subscription.
	ModeSubscriber
)

// NewClient creates a Pub/Sub v2 client and checks the resources the caller
// depends on exist.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, mode Mode, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcpCfg.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcpCfg.ProjectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: gcpCfg.ProjectID,
		cfg:       cfg,
	}

	check := c.ensureTopicExists
	if mode == ModeSubscriber {
		check = c.ensureSubscriptionExists
	}
	if err := check(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	c.ping = check

	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_mode", modeName(mode)), "pubsub client initialized")
	}
	return c, nil
}

func modeName(mode Mode) string {
	if mode == ModeSubscriber {
		return "subscriber"
	}
	return "publisher"
}

func (c *Client) ensureTopicExists(ctx context.Context) error {
	name := c.resourceName(topics, c.cfg.LoyaltyTopic)
	if name == "" {
		return errTopicRequired
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	return describe("topic", c.cfg.LoyaltyTopic, err)
}

func (c *Client) ensureSubscriptionExists(ctx context.Context) error {
	name := c.resourceName(subscriptions, c.cfg.AnalyticsSubscription)
	if name == "" {
		return errSubscriptionNeeded
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	return describe("subscription", c.cfg.AnalyticsSubscription, err)
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, strings.TrimSpace(name))
	default:
		return fmt.Errorf("checking %s %q: %w", kind, strings.TrimSpace(name), err)
	}
}

// AnalyticsSubscription returns the subscriber for the analytics worker.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.resourceName(subscriptions, c.cfg.AnalyticsSubscription)
	if fullName == "" {
		return nil
	}
	return c.client.Subscriber(fullName)
}

// Publisher returns a publisher handle for the given topic ID or resource
// name. The loyalty topic handle is cached and publishes with ordering keys.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.resourceName(topics, name)
	if fullName == "" {
		return nil
	}
	if fullName == c.resourceName(topics, c.cfg.LoyaltyTopic) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.loyalty == nil {
			c.loyalty = c.client.Publisher(fullName)
			c.loyalty.EnableMessageOrdering = true
		}
		return c.loyalty
	}
	return c.client.Publisher(fullName)
}

// Ping re-runs the startup resource check.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ping == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.ping(ctx)
}

// Close flushes the cached publisher and releases client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	if c.loyalty != nil {
		c.loyalty.Stop()
	}
	c.mu.Unlock()
	return c.client.Close()
}

const (
	topics        = "topics"
	subscriptions = "subscriptions"
)

// resourceName expands a short id to projects/<project>/<collection>/<id>.
// Full resource names pass through unchanged.
func (c *Client) resourceName(collection, name string) string {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return ""
	case strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+collection+"/"):
		return n
	}
	return "projects/" + c.projectID + "/" + collection + "/" + n
}
