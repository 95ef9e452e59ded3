// Package cartclient reads and rewrites a user's active cart through the cart
// service HTTP API.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/utafrali/savedcarts/internal/domain"
	"github.com/utafrali/savedcarts/pkg/httpclient"
	"github.com/utafrali/savedcarts/pkg/validator"
)

const serviceName = "cart-service"

// Attribute keys under which cart item fields beyond product and quantity
// travel inside domain.Line.Attributes.
const (
	AttrVariantID = "variant_id"
	AttrName      = "name"
	AttrSKU       = "sku"
	AttrPrice     = "price"
	AttrImageURL  = "image_url"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client implements the active-cart accessor on top of the cart service.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// New creates a cart service client. baseURL is the service root, e.g.
// http://cart-service:8003.
func New(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type cartItem struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	ImageURL  string `json:"image_url,omitempty"`
}

type cartResponse struct {
	Data struct {
		Items []cartItem `json:"items"`
	} `json:"data"`
}

// Lines returns the lines of the user's active cart in cart order.
func (c *Client) Lines(ctx context.Context, userID string) ([]domain.Line, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/cart", userID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call cart service: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}

	lines := make([]domain.Line, 0, len(body.Data.Items))
	for _, item := range body.Data.Items {
		if err := validator.Validate(item); err != nil {
			return nil, fmt.Errorf("invalid cart item %q: %w", item.ProductID, err)
		}
		lines = append(lines, toLine(item))
	}
	return lines, nil
}

// Clear empties the user's active cart.
func (c *Client) Clear(ctx context.Context, userID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/cart", userID, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call cart service: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_ = resp.Body.Close()
	return nil
}

// AddLine adds one line to the user's active cart, passing its attributes back
// as the cart item fields they were read from.
func (c *Client) AddLine(ctx context.Context, userID string, line domain.Line) error {
	item := fromLine(line)
	if err := validator.Validate(item); err != nil {
		return fmt.Errorf("invalid line %q: %w", line.ProductID, err)
	}

	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal add item request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/cart/items", userID, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call cart service: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_ = resp.Body.Close()

	c.logger.DebugContext(ctx, "cart line added",
		slog.String("user_id", userID),
		slog.String("product_id", line.ProductID),
		slog.Int("quantity", line.Quantity),
	)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, userID string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create cart request: %w", err)
	}
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func toLine(item cartItem) domain.Line {
	attrs := map[string]any{
		AttrVariantID: item.VariantID,
		AttrName:      item.Name,
		AttrSKU:       item.SKU,
		AttrPrice:     item.Price,
	}
	if item.ImageURL != "" {
		attrs[AttrImageURL] = item.ImageURL
	}
	return domain.Line{
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		Attributes: attrs,
	}
}

func fromLine(line domain.Line) cartItem {
	return cartItem{
		ProductID: line.ProductID,
		VariantID: stringAttr(line.Attributes, AttrVariantID),
		Name:      stringAttr(line.Attributes, AttrName),
		SKU:       stringAttr(line.Attributes, AttrSKU),
		Price:     int64Attr(line.Attributes, AttrPrice),
		Quantity:  line.Quantity,
		ImageURL:  stringAttr(line.Attributes, AttrImageURL),
	}
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

// int64Attr reads a numeric attribute. Values that went through a JSON round
// trip come back as float64 or json.Number.
func int64Attr(attrs map[string]any, key string) int64 {
	switch v := attrs[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(math.Round(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, _ := v.Float64()
			return int64(math.Round(f))
		}
		return n
	default:
		return 0
	}
}
