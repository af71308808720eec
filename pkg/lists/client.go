package lists

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	hsclient "github.com/Sternrassler/hubspot-lists-client/pkg/client"
	"github.com/Sternrassler/hubspot-lists-client/pkg/logging"
)

// DefaultBaseURL is the HubSpot API host.
const DefaultBaseURL = "https://api.hubapi.com"

const tracerName = "github.com/Sternrassler/hubspot-lists-client/pkg/lists"

// Client is the HubSpot contact-list client. It holds only immutable
// configuration and is safe for concurrent use.
type Client struct {
	baseURL    string
	transport  Transport
	serializer Serializer
	entity     EntityDescriptor
	pageSize   int
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API host, without a trailing slash (REQUIRED).
	BaseURL string

	// Transport sends requests and injects the credential (REQUIRED).
	Transport Transport

	// Serializer encodes payloads and decodes responses (default: JSONSerializer).
	Serializer Serializer

	// Entity supplies the route base path (default: ContactListEntity).
	Entity EntityDescriptor

	// DefaultPageSize is used when a fetch does not set RequestOptions.PageSize.
	DefaultPageSize int

	// Logger receives debug traces of every request (default: disabled).
	Logger *zerolog.Logger

	// TracerProvider creates the facade spans (default: the global provider).
	TracerProvider trace.TracerProvider
}

// New creates a client from fully injected collaborators.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", cfg.BaseURL)
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		transport:  cfg.Transport,
		serializer: cfg.Serializer,
		entity:     cfg.Entity,
		pageSize:   cfg.DefaultPageSize,
	}
	if cfg.TracerProvider != nil {
		c.tracer = cfg.TracerProvider.Tracer(tracerName)
	} else {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.serializer == nil {
		c.serializer = JSONSerializer{}
	}
	if c.entity == nil {
		c.entity = ContactListEntity{}
	}
	if c.entity.RouteBasePath() == "" {
		return nil, ErrInvalidRouteBase
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if cfg.Logger != nil {
		c.logger = cfg.Logger.With().Str("component", "hubspot-lists").Logger()
	} else {
		c.logger = logging.Nop()
	}

	return c, nil
}

// NewDefault creates a client that talks to the real HubSpot API using the
// default transport (no Redis), the JSON serializer and a disabled logger.
// Use New to inject collaborators for tests or custom wiring.
func NewDefault(apiKey string) (*Client, error) {
	httpClient, err := hsclient.New(hsclient.DefaultConfig(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	return New(Config{
		BaseURL:   DefaultBaseURL,
		Transport: httpClient,
	})
}

// Template resolves the path template of action for the client's entity.
func (c *Client) Template(action Action) (PathTemplate, error) {
	return ResolvePath(c.entity.RouteBasePath(), action)
}

// DefaultPageSize returns the page size applied when none is requested.
func (c *Client) DefaultPageSize() int {
	return c.pageSize
}

// GetListByID returns one page of contacts of a list, decoded into T.
// A nil opts requests the first page with the client's default page size.
func GetListByID[T any](ctx context.Context, c *Client, listID int64, opts *RequestOptions) (T, error) {
	var zero T

	ctx, span := c.startSpan(ctx, ActionFetchPage, listID)
	defer span.End()

	c.logger.Debug().Int64("list_id", listID).Msg("Get contacts for list")

	if listID <= 0 {
		c.observe(ActionFetchPage, outcomeInvalidCall, time.Time{})
		return zero, recordSpanError(span, fmt.Errorf("%w: %d", ErrInvalidListID, listID))
	}

	template, err := c.Template(ActionFetchPage)
	if err != nil {
		c.observe(ActionFetchPage, outcomeInvalidCall, time.Time{})
		return zero, recordSpanError(span, err)
	}

	start := time.Now()
	data, err := fetchPage[T](ctx, c, template, listID, opts.withDefaults(c.pageSize))
	c.observe(ActionFetchPage, fetchOutcome(err), start)
	if err != nil {
		return zero, recordSpanError(span, err)
	}
	return data, nil
}

// GetContacts returns one page of contacts of a list.
func (c *Client) GetContacts(ctx context.Context, listID int64, opts *RequestOptions) (*ContactListPage, error) {
	page, err := GetListByID[ContactListPage](ctx, c, listID, opts)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// AddBatch adds the contacts in payload to a list. It returns false when
// HubSpot rejected the request with a well-formed non-success response.
func (c *Client) AddBatch(ctx context.Context, payload *BatchPayload, listID int64) (bool, error) {
	c.logger.Debug().Int64("list_id", listID).Msg("Add batch of contacts to list")
	return c.batch(ctx, ActionAddBatch, payload, listID)
}

// RemoveBatch removes the contacts in payload from a list. It returns false
// when HubSpot rejected the request with a well-formed non-success response.
func (c *Client) RemoveBatch(ctx context.Context, payload *BatchPayload, listID int64) (bool, error) {
	c.logger.Debug().Int64("list_id", listID).Msg("Remove batch of contacts from list")
	return c.batch(ctx, ActionRemoveBatch, payload, listID)
}

func (c *Client) batch(ctx context.Context, action Action, payload *BatchPayload, listID int64) (bool, error) {
	ctx, span := c.startSpan(ctx, action, listID)
	defer span.End()

	if listID <= 0 {
		c.observe(action, outcomeInvalidCall, time.Time{})
		return false, recordSpanError(span, fmt.Errorf("%w: %d", ErrInvalidListID, listID))
	}
	if payload == nil {
		c.observe(action, outcomeInvalidCall, time.Time{})
		return false, recordSpanError(span, ErrNilPayload)
	}

	template, err := c.Template(action)
	if err != nil {
		c.observe(action, outcomeInvalidCall, time.Time{})
		return false, recordSpanError(span, err)
	}

	span.SetAttributes(attribute.Int("hubspot.batch.size", payload.Len()))
	batchContactsTotal.WithLabelValues(action.String()).Add(float64(payload.Len()))

	start := time.Now()
	ok, err := c.mutateBatch(ctx, template, listID, payload)
	switch {
	case err != nil:
		c.observe(action, fetchOutcome(err), start)
		return false, recordSpanError(span, err)
	case !ok:
		c.observe(action, outcomeRejected, start)
		span.SetStatus(codes.Error, "rejected by hubspot")
	default:
		c.observe(action, outcomeSuccess, start)
	}
	return ok, nil
}

// resolveURL expands template for listID and appends the query, if any.
func (c *Client) resolveURL(template PathTemplate, listID int64, query url.Values) string {
	u := c.baseURL + template.Expand(listID)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) startSpan(ctx context.Context, action Action, listID int64) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "hubspot.lists."+action.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("hubspot.action", action.String()),
			attribute.Int64("hubspot.list_id", listID),
		),
	)
}

func (c *Client) observe(action Action, outcome string, start time.Time) {
	listOperationsTotal.WithLabelValues(action.String(), outcome).Inc()
	if !start.IsZero() {
		listOperationDuration.WithLabelValues(action.String()).Observe(time.Since(start).Seconds())
	}
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
