package streetview

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/streetview"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Google Street View Static API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

func NewClient(apiKey string) *Client {
	return NewClientWithHTTPDoer(apiKey, DefaultBaseURL, &http.Client{
		Timeout: 30 * time.Second,
	})
}

func NewClientWithHTTPDoer(apiKey string, baseURL string, httpClient HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type metadataResponse struct {
	Status   string `json:"status"`
	PanoID   string `json:"pano_id"`
	Date     string `json:"date"`
	Location *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	ErrorMessage string `json:"error_message"`
}

// Probe asks for the metadata of the panorama nearest to the query location. Missing imagery is a regular result
// with Found=false, only failures of the service are returned as *ProviderError.
func (c *Client) Probe(ctx context.Context, query ImageQuery) (*ImageResult, error) {
	body, statusCode, err := c.get(ctx, "/metadata", query)
	if err != nil {
		return nil, &ProviderError{Operation: "probe", StatusCode: statusCode, Err: err}
	}

	var response metadataResponse
	err = json.Unmarshal(body, &response)
	if err != nil {
		return nil, &ProviderError{Operation: "probe", StatusCode: statusCode, Err: errors.Wrap(err, "Unable to decode metadata response")}
	}

	sigolo.Tracef("Metadata for %s: status=%s pano=%s", formatLocation(query.Location), response.Status, response.PanoID)

	switch response.Status {
	case "OK":
		if response.Location == nil {
			return nil, &ProviderError{Operation: "probe", StatusCode: statusCode, Status: response.Status, Err: errors.New("Metadata response has no location")}
		}
		return &ImageResult{
			Found:    true,
			Status:   response.Status,
			Location: orb.Point{response.Location.Lng, response.Location.Lat},
			PanoID:   response.PanoID,
			Date:     response.Date,
		}, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return &ImageResult{
			Found:  false,
			Status: response.Status,
		}, nil
	}

	var cause error
	if response.ErrorMessage != "" {
		cause = errors.New(response.ErrorMessage)
	}
	return nil, &ProviderError{Operation: "probe", StatusCode: statusCode, Status: response.Status, Err: cause}
}

// Fetch downloads the image of the query.
func (c *Client) Fetch(ctx context.Context, query ImageQuery) ([]byte, error) {
	body, statusCode, err := c.get(ctx, "", query)
	if err != nil {
		return nil, &ProviderError{Operation: "fetch", StatusCode: statusCode, Err: err}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, query ImageQuery) ([]byte, int, error) {
	requestURL := c.baseURL + path + "?" + c.queryParams(query).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "Unable to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "Unable to execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "Unable to read response body")
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, errors.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return body, resp.StatusCode, nil
}

func (c *Client) queryParams(query ImageQuery) url.Values {
	params := url.Values{}
	params.Set("location", formatLocation(query.Location))
	params.Set("heading", strconv.FormatFloat(query.Heading, 'f', -1, 64))
	params.Set("pitch", strconv.FormatFloat(query.Pitch, 'f', -1, 64))
	params.Set("size", query.Size)
	if query.Radius > 0 {
		params.Set("radius", strconv.FormatFloat(query.Radius, 'f', -1, 64))
	}
	params.Set("key", c.apiKey)
	return params
}

// formatLocation returns the "lat,lon" notation used by the API.
func formatLocation(location orb.Point) string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(location.Lat(), 'f', -1, 64),
		strconv.FormatFloat(location.Lon(), 'f', -1, 64))
}
