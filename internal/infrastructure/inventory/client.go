// Package inventory implements the REST client for the inventory and
// purchase order backend.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPurchaseOrdersPath = "/api/ewms/odoo/purchase-orders/active"
	defaultLineItemsPath      = "/api/ewms/odoo/purchase-orders/items"
	defaultWarehousesPath     = "/api/ewms/accurate/warehouses"
	defaultStocksPath         = "/api/ewms/odoo/stocks/create"
	defaultTimeout            = 10 * time.Second
	defaultRetryCount         = 2
)

// ErrRecordRejected is returned when the backend did not confirm a stock record
var ErrRecordRejected = shared.NewDomainError("RECORD_REJECTED", "Inventory backend did not confirm the stock record")

// TokenSource provides the bearer token of the logged in operator
type TokenSource interface {
	Token() string
}

// Config contains configuration for the inventory client
type Config struct {
	BaseURL            string
	PurchaseOrdersPath string
	LineItemsPath      string
	WarehousesPath     string
	StocksPath         string
	Timeout            time.Duration
	// RetryCount applies to reads only; stock records are never retried
	// automatically. Negative disables retries.
	RetryCount int
	Logger     *zap.Logger
}

// Client talks to the inventory backend
type Client struct {
	httpClient *resty.Client
	tokens     TokenSource
	cfg        Config
	logger     *zap.Logger
}

var _ labeling.InventoryGateway = (*Client)(nil)

// NewClient creates a new inventory client
func NewClient(cfg *Config, tokens TokenSource) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	if c.PurchaseOrdersPath == "" {
		c.PurchaseOrdersPath = defaultPurchaseOrdersPath
	}
	if c.LineItemsPath == "" {
		c.LineItemsPath = defaultLineItemsPath
	}
	if c.WarehousesPath == "" {
		c.WarehousesPath = defaultWarehousesPath
	}
	if c.StocksPath == "" {
		c.StocksPath = defaultStocksPath
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryCount == 0 {
		c.RetryCount = defaultRetryCount
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(c.BaseURL).
		SetTimeout(c.Timeout).
		SetRetryCount(c.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(retryReads).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		cfg:        c,
		logger:     logger,
	}
}

func retryReads(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

// ====================================================================
// Wire types
// ====================================================================

type envelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// flexString accepts identifiers the backend sends either as numbers or strings
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// flexStrings accepts null, a single value or a list
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				out = append(out, string(it))
			}
		}
		*f = out
		return nil
	}
	var one flexString
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one == "" {
		*f = nil
		return nil
	}
	*f = flexStrings{string(one)}
	return nil
}

type purchaseOrderDTO struct {
	PurchaseOrderNumber flexString `json:"purchase_order_number"`
}

type lineItemDTO struct {
	ItemID            flexString      `json:"item_id"`
	SKU               flexString      `json:"sku"`
	Name              string          `json:"name"`
	UnitName          string          `json:"unit_name"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReceiveItemNumber flexString      `json:"receive_item_number"`
	InventoryID       flexStrings     `json:"inventory_id"`
}

type warehouseDTO struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type stockRequest struct {
	PurchaseOrderNumber string `json:"purchase_order_number"`
	ReceiveItemNumber   string `json:"receive_item_number"`
	ItemID              string `json:"item_id"`
	TagID               string `json:"tag_id"`
	ExpDate             string `json:"exp_date"`
	InventoryID         string `json:"inventory_id"`
	LocationID          string `json:"location_id"`
}

// ====================================================================
// Operations
// ====================================================================

// FetchPurchaseOrders returns the active purchase orders, newest number first
func (c *Client) FetchPurchaseOrders(ctx context.Context) ([]labeling.PurchaseOrder, error) {
	var rows []purchaseOrderDTO
	if err := c.get(ctx, c.cfg.PurchaseOrdersPath, nil, &rows); err != nil {
		return nil, err
	}

	orders := make([]labeling.PurchaseOrder, 0, len(rows))
	for _, r := range rows {
		if r.PurchaseOrderNumber == "" {
			continue
		}
		orders = append(orders, labeling.PurchaseOrder{Number: string(r.PurchaseOrderNumber)})
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Number > orders[j].Number
	})

	c.logger.Debug("fetched purchase orders", zap.Int("count", len(orders)))
	return orders, nil
}

// FetchLineItems returns the receivable lines of purchaseOrder for warehouseID
func (c *Client) FetchLineItems(ctx context.Context, warehouseID, purchaseOrder string) ([]labeling.LineItem, error) {
	params := map[string]string{
		"warehouse_id": warehouseID,
		"po_number":    purchaseOrder,
	}

	var rows []lineItemDTO
	if err := c.get(ctx, c.cfg.LineItemsPath, params, &rows); err != nil {
		return nil, err
	}

	items := make([]labeling.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, labeling.LineItem{
			ItemID:             string(r.ItemID),
			SKU:                string(r.SKU),
			Name:               r.Name,
			UnitName:           r.UnitName,
			Quantity:           r.Quantity,
			ReceiveItemNumber:  string(r.ReceiveItemNumber),
			InventoryBinOnFile: []string(r.InventoryID),
		})
	}

	c.logger.Debug("fetched line items",
		zap.String("purchase_order", purchaseOrder),
		zap.String("warehouse_id", warehouseID),
		zap.Int("count", len(items)))
	return items, nil
}

// FetchWarehouses returns the receiving locations ordered by name. Duplicate
// names keep the last id the backend lists.
func (c *Client) FetchWarehouses(ctx context.Context) ([]labeling.Warehouse, error) {
	var rows []warehouseDTO
	if err := c.get(ctx, c.cfg.WarehousesPath, nil, &rows); err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(rows))
	for _, r := range rows {
		byName[r.Name] = string(r.ID)
	}
	warehouses := make([]labeling.Warehouse, 0, len(byName))
	for name, id := range byName {
		warehouses = append(warehouses, labeling.Warehouse{ID: id, Name: name})
	}
	sort.Slice(warehouses, func(i, j int) bool {
		return warehouses[i].Name < warehouses[j].Name
	})
	return warehouses, nil
}

// RecordPrintedTag records one printed tag against its purchase order. Only a
// 201 answer counts as success.
func (c *Client) RecordPrintedTag(ctx context.Context, record labeling.StockRecord) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	payload := stockRequest{
		PurchaseOrderNumber: record.PurchaseOrderNumber,
		ReceiveItemNumber:   record.ReceiveItemNumber,
		ItemID:              record.ItemID,
		TagID:               record.TagID.String(),
		ExpDate:             record.ExpirationDate.Format(labeling.ISODateLayout),
		InventoryID:         record.InventoryBin.String(),
		LocationID:          record.WarehouseID,
	}

	var env envelope
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&env).
		SetError(&env).
		Post(c.cfg.StocksPath)
	if err != nil {
		c.logger.Error("stock record request failed",
			zap.String("tag_id", payload.TagID),
			zap.Any("payload", payload),
			zap.Error(err))
		return fmt.Errorf("record tag %s: %w", payload.TagID, err)
	}

	if !created(resp.StatusCode(), env.StatusCode) {
		message := env.Message
		if message == "" {
			message = fmt.Sprintf("HTTP %d", resp.StatusCode())
		}
		c.logger.Error("failed to insert stock",
			zap.Any("payload", payload),
			zap.Int("http_status", resp.StatusCode()),
			zap.Int("status_code", env.StatusCode),
			zap.String("message", message))
		return shared.NewDomainError(ErrRecordRejected.Code, "Inventory backend rejected tag "+payload.TagID+": "+message)
	}

	c.logger.Info("stock inserted", zap.Any("payload", payload))
	return nil
}

func created(httpStatus, envelopeStatus int) bool {
	if httpStatus < 200 || httpStatus >= 300 {
		return false
	}
	if envelopeStatus != 0 {
		return envelopeStatus == http.StatusCreated
	}
	return httpStatus == http.StatusCreated
}

func (c *Client) token() (string, error) {
	if c.tokens == nil {
		return "", labeling.ErrNotAuthenticated
	}
	token := c.tokens.Token()
	if token == "" {
		return "", labeling.ErrNotAuthenticated
	}
	return token, nil
}

// get issues an authorised GET and decodes the envelope's data into out.
// Anything other than envelope status 200 is an error.
func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	var env envelope
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetResult(&env).
		SetError(&env).
		Get(path)
	if err != nil {
		c.logger.Error("inventory request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return labeling.ErrNotAuthenticated
	}
	if !resp.IsSuccess() || env.StatusCode != http.StatusOK {
		c.logger.Error("inventory request rejected",
			zap.String("path", path),
			zap.Int("http_status", resp.StatusCode()),
			zap.Int("status_code", env.StatusCode),
			zap.String("message", env.Message))
		return shared.NewDomainError(shared.ErrUpstreamFailure.Code,
			fmt.Sprintf("Error during GET request to %s: HTTP %d %s", path, resp.StatusCode(), env.Message))
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		c.logger.Error("invalid inventory response", zap.String("path", path), zap.Error(err))
		return shared.NewDomainError(shared.ErrUpstreamFailure.Code, "Invalid JSON response from API.")
	}
	return nil
}
