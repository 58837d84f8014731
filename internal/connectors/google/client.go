package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/mybusinessaccountmanagement/v1"
	"google.golang.org/api/mybusinessbusinessinformation/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ListingClient = (*Client)(nil)

// Client calls the Google Business Profile APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewClient creates a listing client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    NewRateLimiter(cfg.RateLimit),
	}
}

// ListAccounts returns one page of accounts the token can reach.
func (c *Client) ListAccounts(ctx context.Context, accessToken, pageToken string) (*driven.Page[driven.RemoteAccount], error) {
	const op = "list accounts"
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	svc, err := mybusinessaccountmanagement.NewService(ctx,
		option.WithHTTPClient(c.authorizedClient(ctx, accessToken)),
		option.WithEndpoint(c.cfg.AccountsEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create account management service: %w", err)
	}

	call := svc.Accounts.List().PageSize(pageSize(c.cfg.PageSize, maxAccountsPageSize)).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, c.classify(op, err)
	}

	page := &driven.Page[driven.RemoteAccount]{NextPageToken: resp.NextPageToken}
	for _, a := range resp.Accounts {
		if a == nil {
			continue
		}
		page.Items = append(page.Items, driven.RemoteAccount{
			Name:        a.Name,
			DisplayName: a.AccountName,
			Type:        a.Type,
		})
	}
	return page, nil
}

// ListLocations returns one page of locations under accounts/{a}.
func (c *Client) ListLocations(
	ctx context.Context,
	accessToken, accountName, pageToken string,
) (*driven.Page[driven.RemoteLocation], error) {
	const op = "list locations"
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	svc, err := mybusinessbusinessinformation.NewService(ctx,
		option.WithHTTPClient(c.authorizedClient(ctx, accessToken)),
		option.WithEndpoint(c.cfg.InformationEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create business information service: %w", err)
	}

	call := svc.Accounts.Locations.List(accountName).
		ReadMask(locationReadMask).
		PageSize(pageSize(c.cfg.PageSize, maxLocationsPageSize)).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, c.classify(op, err)
	}

	page := &driven.Page[driven.RemoteLocation]{NextPageToken: resp.NextPageToken}
	for _, l := range resp.Locations {
		if l == nil {
			continue
		}
		page.Items = append(page.Items, toRemoteLocation(l))
	}
	return page, nil
}

func toRemoteLocation(l *mybusinessbusinessinformation.Location) driven.RemoteLocation {
	loc := driven.RemoteLocation{
		Name:    l.Name,
		Title:   l.Title,
		Website: l.WebsiteUri,
	}
	if l.PhoneNumbers != nil {
		loc.Phone = l.PhoneNumbers.PrimaryPhone
	}
	if a := l.StorefrontAddress; a != nil {
		loc.Address = &driven.RemoteAddress{
			AddressLines:       a.AddressLines,
			Locality:           a.Locality,
			AdministrativeArea: a.AdministrativeArea,
			PostalCode:         a.PostalCode,
		}
	}
	return loc
}

// v4 wire types.

type reviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
}

type reviewReply struct {
	Comment    string    `json:"comment"`
	UpdateTime time.Time `json:"updateTime"`
}

type review struct {
	Name        string       `json:"name"`
	Reviewer    reviewer     `json:"reviewer"`
	StarRating  string       `json:"starRating"`
	Comment     string       `json:"comment"`
	CreateTime  time.Time    `json:"createTime"`
	UpdateTime  time.Time    `json:"updateTime"`
	ReviewReply *reviewReply `json:"reviewReply"`
}

type listReviewsResponse struct {
	Reviews       []review `json:"reviews"`
	NextPageToken string   `json:"nextPageToken"`
}

// ListReviews returns one page of reviews under accounts/{a}/locations/{l}.
func (c *Client) ListReviews(
	ctx context.Context,
	accessToken, locationName, pageToken string,
) (*driven.Page[driven.RemoteReview], error) {
	const op = "list reviews"

	query := url.Values{}
	query.Set("pageSize", strconv.FormatInt(pageSize(c.cfg.PageSize, maxReviewsPageSize), 10))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var resp listReviewsResponse
	endpoint := c.cfg.ReviewsEndpoint + locationName + "/reviews?" + query.Encode()
	if err := c.doJSON(ctx, accessToken, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, c.classify(op, err)
	}

	page := &driven.Page[driven.RemoteReview]{NextPageToken: resp.NextPageToken}
	for _, r := range resp.Reviews {
		remote := driven.RemoteReview{
			Name:             r.Name,
			ReviewerName:     r.Reviewer.DisplayName,
			ReviewerPhotoURL: r.Reviewer.ProfilePhotoURL,
			StarRating:       r.StarRating,
			Comment:          r.Comment,
			CreateTime:       r.CreateTime,
			UpdateTime:       r.UpdateTime,
		}
		if r.ReviewReply != nil {
			remote.Reply = &driven.RemoteReply{Comment: r.ReviewReply.Comment, UpdateTime: r.ReviewReply.UpdateTime}
		}
		page.Items = append(page.Items, remote)
	}
	return page, nil
}

// PublishReply creates or replaces the reply on a review.
func (c *Client) PublishReply(ctx context.Context, accessToken, reviewName, text string) (*driven.RemoteReply, error) {
	const op = "publish reply"

	var resp reviewReply
	endpoint := c.cfg.ReviewsEndpoint + reviewName + "/reply"
	if err := c.doJSON(ctx, accessToken, http.MethodPut, endpoint, reviewReply{Comment: text}, &resp); err != nil {
		return nil, c.classify(op, err)
	}
	return &driven.RemoteReply{Comment: resp.Comment, UpdateTime: resp.UpdateTime}, nil
}

// doJSON sends an authorized JSON request and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, accessToken, method, endpoint string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.authorizedClient(ctx, accessToken).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
