package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const maxResponseSize = 1 << 20

type Client struct {
	baseURL string
	token   string
	http    *http.Client

	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ConnectHealth prepares the gRPC health client used by Ping. The connection
// is established lazily on first use.
func (c *Client) ConnectHealth(addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	c.conn = conn
	c.health = healthpb.NewHealthClient(conn)
	return nil
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Begin opens a multipart session for key. An already stored object is
// reported as common.ErrFileExists and no session is created.
func (c *Client) Begin(ctx context.Context, key string) (string, error) {
	resp, err := c.postJSON(ctx, api.RouteStart, api.StartRequest{Key: key})
	if err != nil {
		return "", err
	}
	if resp.UploadID == "" {
		return "", fmt.Errorf("%w: empty upload id", common.ErrGateway)
	}
	return resp.UploadID, nil
}

// UploadPart sends one part and returns the etag acknowledging it.
func (c *Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error) {
	fields := []netx.FormField{
		{Name: api.FieldKey, Value: key},
		{Name: api.FieldUploadID, Value: uploadID},
		{Name: api.FieldPartNumber, Value: strconv.Itoa(partNumber)},
	}
	req, err := netx.NewMultipartRequest(ctx, http.MethodPut, c.baseURL+api.RouteUploadPart, fields, api.FieldFile, key, data)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.ETag == "" {
		return "", fmt.Errorf("%w: empty etag for part %d", common.ErrGateway, partNumber)
	}
	return resp.ETag, nil
}

// Complete finalizes the session and returns the stored key.
func (c *Client) Complete(ctx context.Context, key, uploadID string, parts []api.Part) (string, error) {
	resp, err := c.postJSON(ctx, api.RouteComplete, api.CompleteRequest{Key: key, UploadID: uploadID, Parts: parts})
	if err != nil {
		return "", err
	}
	if resp.Key != "" {
		return resp.Key, nil
	}
	return key, nil
}

func (c *Client) Abort(ctx context.Context, key, uploadID string) error {
	_, err := c.postJSON(ctx, api.RouteAbort, api.AbortRequest{Key: key, UploadID: uploadID})
	return err
}

// ObjectURL is the canonical address of key on this gateway.
func (c *Client) ObjectURL(key string) string {
	return c.baseURL + api.ObjectPath(key)
}

// Ping reports whether the gateway health service is SERVING.
func (c *Client) Ping(ctx context.Context) error {
	if c.health == nil {
		return fmt.Errorf("%w: health endpoint not configured", common.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", common.ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, route string, body any) (*api.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*api.Response, error) {
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	body, err := netx.ReadLimited(httpResp.Body, maxResponseSize)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	var resp api.Response
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil && httpResp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("%w: malformed response: %w", common.ErrGateway, err)
		}
	}

	if err := mapError(httpResp.StatusCode, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", common.ErrCancelled, ctxErr)
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}

func mapError(statusCode int, resp *api.Response) error {
	if statusCode == http.StatusOK {
		if resp.Success {
			return nil
		}
		if resp.Code == common.CodeFileExists {
			return common.ErrFileExists
		}
		return fmt.Errorf("%w: %s", common.ErrGateway, describe(resp))
	}

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return common.ErrUnauthorized
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrSessionNotFound, describe(resp))
	case resp.Code == common.CodeInvalidParts:
		return fmt.Errorf("%w: %s", common.ErrInvalidParts, describe(resp))
	case resp.Code == common.CodeFileExists:
		return common.ErrFileExists
	case statusCode == http.StatusBadGateway,
		statusCode == http.StatusServiceUnavailable,
		statusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", common.ErrUnavailable, statusCode)
	default:
		return fmt.Errorf("%w: status %d: %s", common.ErrGateway, statusCode, describe(resp))
	}
}

func describe(resp *api.Response) string {
	if resp.Error != "" {
		return resp.Error
	}
	if resp.Code != "" {
		return resp.Code
	}
	return "unknown error"
}
