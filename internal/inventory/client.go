package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pasarku-be/internal/logger"

	"go.uber.org/zap"
)

// Gateway is the consumed-only contract of the external item service.
//
// Reserve decrements stock immediately; Release increments it back. There is
// no idempotency key: a retried Reserve after an ambiguous timeout can
// double-decrement, so callers must not retry these calls.
type Gateway interface {
	GetItem(ctx context.Context, itemID int64) (*Item, error)
	CheckAvailability(ctx context.Context, itemID int64) (*Availability, error)
	Reserve(ctx context.Context, itemID int64, quantity int) error
	Release(ctx context.Context, itemID int64, quantity int) error
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) Gateway {
	if baseURL == "" {
		logger.L().Warn("inventory base URL is empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *client) GetItem(ctx context.Context, itemID int64) (*Item, error) {
	log := logger.FromCtx(ctx).With(zap.Int64("item_id", itemID))

	url := fmt.Sprintf("%s/api/items/%d", c.baseURL, itemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("inventory request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error("inventory returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		log.Error("failed decoding item response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &item, nil
}

func (c *client) CheckAvailability(ctx context.Context, itemID int64) (*Availability, error) {
	log := logger.FromCtx(ctx).With(zap.Int64("item_id", itemID))

	url := fmt.Sprintf("%s/api/items/%d/availability", c.baseURL, itemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("availability request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error("availability returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var availability Availability
	if err := json.NewDecoder(resp.Body).Decode(&availability); err != nil {
		log.Error("failed decoding availability response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &availability, nil
}

func (c *client) Reserve(ctx context.Context, itemID int64, quantity int) error {
	return c.postStockChange(ctx, "/api/items/reserve", itemID, quantity)
}

func (c *client) Release(ctx context.Context, itemID int64, quantity int) error {
	return c.postStockChange(ctx, "/api/items/release", itemID, quantity)
}

func (c *client) postStockChange(ctx context.Context, path string, itemID int64, quantity int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("path", path),
		zap.Int64("item_id", itemID),
		zap.Int("quantity", quantity),
	)

	body, err := json.Marshal(reservationRequest{ItemID: itemID, Quantity: quantity})
	if err != nil {
		return err
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("stock change request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrItemNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrInsufficientStock
	default:
		respBody, _ := io.ReadAll(resp.Body)
		log.Error("stock change returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}
