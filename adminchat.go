// Package adminchat is the Go client SDK for the Vendora marketplace admin
// backend: the vendor-support chat subsystem (inbox, message history, send,
// real-time synchronization) plus the admin CRUD surfaces the dashboard
// exposes (banners, categories, subscription plans, store staff, vendor
// approval).
//
// Example:
//
//	client := adminchat.NewClient(token)
//
//	// Chat API
//	inbox, _ := client.Chat().Inbox(ctx)
//	conv, _ := client.Chat().Start(ctx, "store-123")
//	client.Chat().Send(ctx, conv.ID, "Hello!", nil)
//
//	// Admin surfaces
//	client.Vendors().UpdateStatus(ctx, "vendor-1", adminchat.VendorApproved)
//	client.Banners().List(ctx)
package adminchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "http://localhost:5000"
	DefaultRealtimeURL = "http://localhost:5001"
	DefaultTimeout     = 30 * time.Second
)

// Sentinel errors for misconfigured or unauthenticated clients.
var (
	ErrNoBaseURL = errors.New("adminchat: backend base URL is not configured")
	ErrNoToken   = errors.New("adminchat: auth token required for write operations")
)

// ============================================================================
// Client
// ============================================================================

type Client struct {
	token       string
	baseURL     string
	realtimeURL string
	httpClient  *http.Client

	chat          *ChatClient
	banners       *BannersClient
	categories    *CategoriesClient
	subscriptions *SubscriptionsClient
	staff         *StaffClient
	vendors       *VendorsClient
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithRealtimeURL(u string) ClientOption {
	return func(c *Client) { c.realtimeURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient creates a new Vendora admin client.
// token is the signed-in operator's session token; pass "" for read-only use
// against endpoints that allow it.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:       token,
		baseURL:     DefaultBaseURL,
		realtimeURL: DefaultRealtimeURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.chat = &ChatClient{client: c}
	c.banners = &BannersClient{client: c}
	c.categories = &CategoriesClient{client: c}
	c.subscriptions = &SubscriptionsClient{client: c}
	c.staff = &StaffClient{client: c}
	c.vendors = &VendorsClient{client: c}
	return c
}

// SetToken sets or replaces the auth token, e.g. after a session refresh.
func (c *Client) SetToken(token string) {
	c.token = token
}

// RealtimeURL returns the configured real-time server address.
func (c *Client) RealtimeURL() string {
	return c.realtimeURL
}

// Chat returns the chat sub-client.
func (c *Client) Chat() *ChatClient { return c.chat }

// Banners returns the CMS banner sub-client.
func (c *Client) Banners() *BannersClient { return c.banners }

// Categories returns the category sub-client.
func (c *Client) Categories() *CategoriesClient { return c.categories }

// Subscriptions returns the subscription plan sub-client.
func (c *Client) Subscriptions() *SubscriptionsClient { return c.subscriptions }

// Staff returns the store staff sub-client.
func (c *Client) Staff() *StaffClient { return c.staff }

// Vendors returns the vendor approval sub-client.
func (c *Client) Vendors() *VendorsClient { return c.vendors }

// ============================================================================
// Internal request helpers
// ============================================================================

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if c.token == "" && method != http.MethodGet {
		return nil, ErrNoToken
	}

	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return data, &APIError{Code: "UNAUTHORIZED", Message: httpErrMessage(data, "credentials rejected")}
	}
	if resp.StatusCode >= 400 {
		return data, &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: httpErrMessage(data, resp.Status)}
	}
	return data, nil
}

// do performs a request and decodes the standard envelope.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, query map[string]string) (*APIResult, error) {
	data, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}
	var result APIResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if err := result.Err(); err != nil {
		return &result, err
	}
	return &result, nil
}

// httpErrMessage pulls a message out of an error body, falling back to def.
func httpErrMessage(data []byte, def string) string {
	var result APIResult
	if json.Unmarshal(data, &result) == nil {
		if result.Error != nil && result.Error.Message != "" {
			return result.Error.Message
		}
		if result.Message != "" {
			return result.Message
		}
	}
	return def
}

// ============================================================================
// Chat API
// ============================================================================

// ChatClient covers the vendor-support chat endpoints: inbox, message
// history, send, conversation start, and read markers.
type ChatClient struct{ client *Client }

// Inbox fetches the operator's conversation list.
func (ch *ChatClient) Inbox(ctx context.Context) ([]Conversation, error) {
	result, err := ch.client.do(ctx, "GET", "/chat/inbox", nil, nil)
	if err != nil {
		return nil, err
	}
	var convs []Conversation
	if err := result.Decode(&convs); err != nil {
		return nil, fmt.Errorf("failed to decode inbox: %w", err)
	}
	return convs, nil
}

// Messages fetches the full message history of a conversation, ascending by
// creation time. The returned window is authoritative for the conversation.
func (ch *ChatClient) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	result, err := ch.client.do(ctx, "GET", "/chat/conversation/"+conversationID+"/messages", nil, nil)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := result.Decode(&msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

// Send posts a message and returns the backend-confirmed Message, including
// its server-assigned identifier and timestamp.
func (ch *ChatClient) Send(ctx context.Context, conversationID, text string, files []FileAttachment) (*Message, error) {
	payload := map[string]interface{}{"text": text}
	if len(files) > 0 {
		payload["files"] = files
	}
	result, err := ch.client.do(ctx, "POST", "/chat/conversation/"+conversationID+"/messages", payload, nil)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := result.Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode sent message: %w", err)
	}
	return &msg, nil
}

// Start resolves or creates the conversation for a store. The backend
// guarantees at most one conversation per (operator, store) pair and returns
// the existing one when present.
func (ch *ChatClient) Start(ctx context.Context, storeID string) (*Conversation, error) {
	result, err := ch.client.do(ctx, "POST", "/chat/start", map[string]string{"storeId": storeID}, nil)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := result.Decode(&conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

// MarkRead records the operator's read position in a conversation.
func (ch *ChatClient) MarkRead(ctx context.Context, conversationID string) error {
	_, err := ch.client.do(ctx, "POST", "/chat/conversation/"+conversationID+"/read", nil, nil)
	return err
}

// ============================================================================
// CMS Banners
// ============================================================================

// BannersClient covers the CMS banner endpoints.
type BannersClient struct{ client *Client }

func (b *BannersClient) List(ctx context.Context) ([]Banner, error) {
	result, err := b.client.do(ctx, "GET", "/cms/banners", nil, nil)
	if err != nil {
		return nil, err
	}
	var banners []Banner
	if err := result.Decode(&banners); err != nil {
		return nil, fmt.Errorf("failed to decode banners: %w", err)
	}
	return banners, nil
}

func (b *BannersClient) Create(ctx context.Context, banner *Banner) (*APIResult, error) {
	return b.client.do(ctx, "POST", "/cms/banners", banner, nil)
}

func (b *BannersClient) Update(ctx context.Context, id string, banner *Banner) (*APIResult, error) {
	return b.client.do(ctx, "PUT", "/cms/"+id, banner, nil)
}

func (b *BannersClient) Delete(ctx context.Context, id string) (*APIResult, error) {
	return b.client.do(ctx, "DELETE", "/cms/"+id, nil, nil)
}

// ============================================================================
// Categories
// ============================================================================

// CategoriesClient covers the product category endpoints.
type CategoriesClient struct{ client *Client }

func (cc *CategoriesClient) List(ctx context.Context) ([]Category, error) {
	result, err := cc.client.do(ctx, "GET", "/category/get-all", nil, nil)
	if err != nil {
		return nil, err
	}
	var cats []Category
	if err := result.Decode(&cats); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return cats, nil
}

func (cc *CategoriesClient) Update(ctx context.Context, id string, cat *Category) (*APIResult, error) {
	return cc.client.do(ctx, "PUT", "/category/"+id, cat, nil)
}

func (cc *CategoriesClient) Delete(ctx context.Context, id string) (*APIResult, error) {
	return cc.client.do(ctx, "DELETE", "/category/"+id, nil, nil)
}

// ============================================================================
// Subscription Plans
// ============================================================================

// SubscriptionsClient covers the subscription plan endpoints.
type SubscriptionsClient struct{ client *Client }

func (s *SubscriptionsClient) List(ctx context.Context) ([]SubscriptionPlan, error) {
	result, err := s.client.do(ctx, "GET", "/subscription/get-all", nil, nil)
	if err != nil {
		return nil, err
	}
	var plans []SubscriptionPlan
	if err := result.Decode(&plans); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	return plans, nil
}

func (s *SubscriptionsClient) Create(ctx context.Context, plan *SubscriptionPlan) (*APIResult, error) {
	return s.client.do(ctx, "POST", "/subscription/create", plan, nil)
}

func (s *SubscriptionsClient) Update(ctx context.Context, id string, plan *SubscriptionPlan) (*APIResult, error) {
	return s.client.do(ctx, "PUT", "/subscription/"+id, plan, nil)
}

func (s *SubscriptionsClient) Delete(ctx context.Context, id string) (*APIResult, error) {
	return s.client.do(ctx, "DELETE", "/subscription/delete/"+id, nil, nil)
}

// ============================================================================
// Store Staff
// ============================================================================

// StaffClient covers the per-store staff account endpoints.
type StaffClient struct{ client *Client }

func (st *StaffClient) List(ctx context.Context, storeID string) ([]StaffMember, error) {
	result, err := st.client.do(ctx, "GET", "/store/"+storeID+"/staff", nil, nil)
	if err != nil {
		return nil, err
	}
	var members []StaffMember
	if err := result.Decode(&members); err != nil {
		return nil, fmt.Errorf("failed to decode staff: %w", err)
	}
	return members, nil
}

func (st *StaffClient) Create(ctx context.Context, storeID string, member *StaffMember) (*APIResult, error) {
	return st.client.do(ctx, "POST", "/store/"+storeID+"/staff", member, nil)
}

func (st *StaffClient) Update(ctx context.Context, storeID, staffID string, member *StaffMember) (*APIResult, error) {
	return st.client.do(ctx, "PUT", "/store/"+storeID+"/staff/"+staffID, member, nil)
}

func (st *StaffClient) Delete(ctx context.Context, storeID, staffID string) (*APIResult, error) {
	return st.client.do(ctx, "DELETE", "/store/"+storeID+"/staff/"+staffID, nil, nil)
}

// ============================================================================
// Vendor Approval
// ============================================================================

// VendorsClient covers the vendor onboarding approval workflow.
type VendorsClient struct{ client *Client }

// List fetches one page of vendor requests. status filters by approval state
// ("pending", "approved", "rejected"); pass "" or "all" for every request.
func (v *VendorsClient) List(ctx context.Context, page, limit int, status string) (*VendorPage, error) {
	query := map[string]string{
		"page":  fmt.Sprintf("%d", page),
		"limit": fmt.Sprintf("%d", limit),
	}
	if status != "" && status != "all" {
		query["status"] = status
	}
	result, err := v.client.do(ctx, "GET", "/vendor/requests", nil, query)
	if err != nil {
		return nil, err
	}
	var vendors []VendorRequest
	if err := result.Decode(&vendors); err != nil {
		return nil, fmt.Errorf("failed to decode vendor requests: %w", err)
	}
	return &VendorPage{Vendors: vendors, Total: result.Total}, nil
}

func (v *VendorsClient) Get(ctx context.Context, id string) (*VendorRequest, error) {
	result, err := v.client.do(ctx, "GET", "/vendor/requests/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	var vendor VendorRequest
	if err := result.Decode(&vendor); err != nil {
		return nil, fmt.Errorf("failed to decode vendor request: %w", err)
	}
	return &vendor, nil
}

// UpdateStatus moves a vendor request through the approval workflow.
func (v *VendorsClient) UpdateStatus(ctx context.Context, id, status string) (*APIResult, error) {
	return v.client.do(ctx, "PATCH", "/vendor/requests/"+id+"/status", map[string]string{"status": status}, nil)
}

func (v *VendorsClient) Delete(ctx context.Context, id string) (*APIResult, error) {
	return v.client.do(ctx, "DELETE", "/vendor/requests/"+id, nil, nil)
}
