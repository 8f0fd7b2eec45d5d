package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultOverpassURL  = "https://overpass-api.de/api"
	DefaultUserAgent    = "roadview"

	relationAreaOffset = 3600000000
	wayAreaOffset      = 2400000000
)

// Client resolves area names with Nominatim and downloads the OSM data of an area from the Overpass API.
type Client struct {
	NominatimURL string
	OverpassURL  string
	UserAgent    string
	Timeout      time.Duration // Server side timeout of Overpass queries
	httpClient   *http.Client
}

func NewClient() *Client {
	return NewClientWithURLs(DefaultNominatimURL, DefaultOverpassURL, &http.Client{
		Timeout: 15 * time.Minute,
	})
}

func NewClientWithURLs(nominatimURL string, overpassURL string, httpClient *http.Client) *Client {
	return &Client{
		NominatimURL: strings.TrimSuffix(nominatimURL, "/"),
		OverpassURL:  strings.TrimSuffix(overpassURL, "/"),
		UserAgent:    DefaultUserAgent,
		Timeout:      600 * time.Second,
		httpClient:   httpClient,
	}
}

type nominatimPlace struct {
	OsmType     string `json:"osm_type"`
	OsmID       int64  `json:"osm_id"`
	DisplayName string `json:"display_name"`
}

// AreaID returns the Overpass area ID of the best Nominatim match for the given name, e.g. "Portland, Oregon".
func (c *Client) AreaID(ctx context.Context, name string) (int64, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.NominatimURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, errors.Wrap(err, "Unable to create Nominatim request")
	}

	body, err := c.do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "Unable to search '%s' with Nominatim", name)
	}

	var places []nominatimPlace
	err = json.Unmarshal(body, &places)
	if err != nil {
		return 0, errors.Wrap(err, "Unable to decode Nominatim response")
	}
	if len(places) == 0 {
		return 0, errors.Errorf("Nominatim found no place named '%s'", name)
	}

	place := places[0]
	sigolo.Debugf("Nominatim found %s %d for '%s': %s", place.OsmType, place.OsmID, name, place.DisplayName)

	return AreaIDFromOsm(place.OsmType, place.OsmID)
}

// AreaIDFromOsm converts the ID of an OSM relation or way into the ID Overpass uses for the area of that object.
func AreaIDFromOsm(osmType string, id int64) (int64, error) {
	switch osm.Type(osmType) {
	case osm.TypeRelation:
		return id + relationAreaOffset, nil
	case osm.TypeWay:
		return id + wayAreaOffset, nil
	}
	return 0, errors.Errorf("OSM object %s %d has no area", osmType, id)
}

// BuildAreaQuery returns the Overpass QL query for all ways and nodes within the given area.
func BuildAreaQuery(areaID int64, timeout time.Duration) string {
	return fmt.Sprintf("[out:json][timeout:%d];area(%d)->.searchArea;(way(area.searchArea);node(area.searchArea););out body;", int(timeout.Seconds()), areaID)
}

// Query downloads all ways and nodes of the given area.
func (c *Client) Query(ctx context.Context, areaID int64) (*osm.OSM, error) {
	query := BuildAreaQuery(areaID, c.Timeout)
	sigolo.Debugf("Overpass query: %s", query)

	data := url.Values{}
	data.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.OverpassURL+"/interpreter", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "Unable to create Overpass request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	queryStartTime := time.Now()
	body, err := c.do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to query area %d from Overpass", areaID)
	}
	sigolo.Debugf("Received %d bytes from Overpass in %s", len(body), time.Since(queryStartTime))

	osmData := &osm.OSM{}
	err = json.Unmarshal(body, osmData)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to decode Overpass response")
	}

	sigolo.Infof("Downloaded %d nodes, %d ways and %d relations of area %d", len(osmData.Nodes), len(osmData.Ways), len(osmData.Relations), areaID)
	return osmData, nil
}

// Download resolves the area name and downloads its data.
func (c *Client) Download(ctx context.Context, areaName string) (*osm.OSM, error) {
	areaID, err := c.AreaID(ctx, areaName)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, areaID)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Request to %s failed with status %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}

	return body, nil
}

// RegionFileName turns a region name like "Portland, Oregon" into the name used in data files, here "portland".
func RegionFileName(region string) string {
	city := strings.Split(region, ",")[0]
	return strings.ReplaceAll(strings.ToLower(city), " ", "")
}
