package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultBaseURL = "https://vision.googleapis.com"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// ErrNoCredentials is returned when neither an API key nor a service account
// key is configured.
var ErrNoCredentials = errors.New("vision: api key or service account key required")

// healthCheckImage is a 1x1 PNG.
const healthCheckImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChAGAWx7l1wAAAABJRU5ErkJggg=="

type Feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// AnalysisFeatures are requested for a full outfit analysis.
var AnalysisFeatures = []Feature{
	{Type: "LABEL_DETECTION", MaxResults: 20},
	{Type: "IMAGE_PROPERTIES", MaxResults: 10},
	{Type: "OBJECT_LOCALIZATION", MaxResults: 10},
}

var colorFeatures = []Feature{{Type: "IMAGE_PROPERTIES", MaxResults: 10}}

type ClientOpts struct {
	BaseURL string
	APIKey  string
	// ServiceAccountKey is the JSON key of a service account. Used when
	// APIKey is empty.
	ServiceAccountKey string
}

// Client calls the Google Cloud Vision images:annotate REST endpoint.
type Client struct {
	httpClient *resty.Client
}

func NewClient(ctx context.Context, opts ClientOpts) (*Client, error) {
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	var httpClient *resty.Client
	switch {
	case opts.APIKey != "":
		httpClient = resty.New().SetQueryParam("key", opts.APIKey)
		log.Info().Msg("vision client using api key")
	case opts.ServiceAccountKey != "":
		key, err := normalizeServiceAccountKey(opts.ServiceAccountKey)
		if err != nil {
			return nil, err
		}
		creds, err := google.CredentialsFromJSON(ctx, key, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to load service account credentials: %w", err)
		}
		httpClient = resty.NewWithClient(oauth2.NewClient(ctx, creds.TokenSource))
		log.Info().Msg("vision client using service account")
	default:
		return nil, ErrNoCredentials
	}

	httpClient.
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")

	return &Client{httpClient: httpClient}, nil
}

// normalizeServiceAccountKey validates the key JSON and turns escaped "\n"
// sequences in the private key into real newlines, which happens when the
// key is pasted into an env file.
func normalizeServiceAccountKey(raw string) ([]byte, error) {
	var key map[string]any
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, fmt.Errorf("service account key must be a JSON key file: %w", err)
	}
	if pk, ok := key["private_key"].(string); ok {
		key["private_key"] = strings.ReplaceAll(pk, `\n`, "\n")
	}
	return json.Marshal(key)
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []Feature `json:"features"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	LabelAnnotations []struct {
		Mid         string  `json:"mid"`
		Description string  `json:"description"`
		Score       float64 `json:"score"`
	} `json:"labelAnnotations"`
	ImagePropertiesAnnotation *struct {
		DominantColors struct {
			Colors []struct {
				Color struct {
					Red   float64 `json:"red"`
					Green float64 `json:"green"`
					Blue  float64 `json:"blue"`
				} `json:"color"`
				Score         float64 `json:"score"`
				PixelFraction float64 `json:"pixelFraction"`
			} `json:"colors"`
		} `json:"dominantColors"`
	} `json:"imagePropertiesAnnotation"`
	LocalizedObjectAnnotations []struct {
		Mid          string  `json:"mid"`
		Name         string  `json:"name"`
		Score        float64 `json:"score"`
		BoundingPoly struct {
			NormalizedVertices []fashion.Vertex `json:"normalizedVertices"`
		} `json:"boundingPoly"`
	} `json:"localizedObjectAnnotations"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Annotate runs label detection, image properties and object localization
// on one image.
func (c *Client) Annotate(ctx context.Context, image []byte) (fashion.Observation, error) {
	res, err := c.annotate(ctx, image, AnalysisFeatures)
	if err != nil {
		return fashion.Observation{}, err
	}
	obs := res.observation()

	log.Info().
		Int("labels", len(obs.Labels)).
		Int("colors", len(obs.Colors)).
		Int("objects", len(obs.Objects)).
		Msg("vision annotate")

	return obs, nil
}

// DominantColors implements DominantColorAnalyzer with the image properties
// feature only.
func (c *Client) DominantColors(ctx context.Context, image []byte) ([]fashion.DominantColor, error) {
	res, err := c.annotate(ctx, image, colorFeatures)
	if err != nil {
		return nil, err
	}
	return res.observation().Colors, nil
}

// Check sends a tiny image to verify credentials and connectivity.
func (c *Client) Check(ctx context.Context) error {
	image, err := base64.StdEncoding.DecodeString(healthCheckImage)
	if err != nil {
		return err
	}
	_, err = c.annotate(ctx, image, AnalysisFeatures)
	return err
}

func (c *Client) annotate(ctx context.Context, image []byte, features []Feature) (*imageResponse, error) {
	if len(image) == 0 {
		return nil, errors.New("vision: empty image")
	}

	req := imageRequest{Features: features}
	req.Image.Content = base64.StdEncoding.EncodeToString(image)

	result := &annotateResponse{}
	_, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetBody(annotateRequest{Requests: []imageRequest{req}}).
		SetResult(result).
		Post("/v1/images:annotate"))
	if err != nil {
		return nil, err
	}

	if len(result.Responses) == 0 {
		return nil, errors.New("vision: empty response")
	}
	res := &result.Responses[0]
	if res.Error != nil && res.Error.Message != "" {
		return nil, errors.Errorf("vision api error: %s (code %d)", res.Error.Message, res.Error.Code)
	}
	return res, nil
}

func (r *imageResponse) observation() fashion.Observation {
	obs := fashion.Observation{
		Labels:  make([]fashion.Label, 0, len(r.LabelAnnotations)),
		Colors:  []fashion.DominantColor{},
		Objects: make([]fashion.LocalizedObject, 0, len(r.LocalizedObjectAnnotations)),
	}
	for _, l := range r.LabelAnnotations {
		obs.Labels = append(obs.Labels, fashion.Label{Description: l.Description, Score: l.Score})
	}
	if r.ImagePropertiesAnnotation != nil {
		for _, c := range r.ImagePropertiesAnnotation.DominantColors.Colors {
			obs.Colors = append(obs.Colors, fashion.DominantColor{
				Red:           channel(c.Color.Red),
				Green:         channel(c.Color.Green),
				Blue:          channel(c.Color.Blue),
				Score:         c.Score,
				PixelFraction: c.PixelFraction,
			})
		}
	}
	for _, o := range r.LocalizedObjectAnnotations {
		vertices := o.BoundingPoly.NormalizedVertices
		if vertices == nil {
			vertices = []fashion.Vertex{}
		}
		obs.Objects = append(obs.Objects, fashion.LocalizedObject{Name: o.Name, Score: o.Score, Vertices: vertices})
	}
	return obs
}

func channel(v float64) int {
	return int(math.Max(0, math.Min(255, math.Round(v))))
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, errors.Errorf("request failed: %s %s (status: %d)", res.Request.Method, redactKey(res.Request.URL), res.StatusCode())
	}
	return res, nil
}

func redactKey(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
