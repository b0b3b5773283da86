// Package media signs uploads for and talks to the Cloudinary CDN.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/asset"
)

const (
	DefaultFolder       = "jia-uploads"
	DefaultUploadPreset = "jia_unsigned"
	DefaultResourceType = "image"

	optimized = "f_auto,q_auto"
	thumbnail = "c_fill,f_auto,h_200,q_auto,w_200"
)

// ErrNotFound is returned when the CDN has no resource with the given id.
var ErrNotFound = errors.New("media not found")

// Config configures a Client.
type Config struct {
	CloudName    string
	APIKey       string
	APISecret    string
	Folder       string
	UploadPreset string
	// APIURL overrides the admin and upload API host, e.g. "https://api.cloudinary.com".
	APIURL string
}

// Client signs upload requests and calls the admin and upload APIs.
type Client struct {
	cld *cloudinary.Cloudinary
	cfg Config
	now func() time.Time
}

// New creates a Client, filling unset fields with defaults.
func New(cfg Config) (*Client, error) {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if cfg.UploadPreset == "" {
		cfg.UploadPreset = DefaultUploadPreset
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	if cfg.APIURL != "" {
		cld.Config.API.UploadPrefix = strings.TrimSuffix(cfg.APIURL, "/")
	}
	return &Client{cld: cld, cfg: cfg, now: time.Now}, nil
}

// Sign returns the request signature for the non-empty params: the hex SHA-1
// of the parameters sorted by name, joined as k=v with '&', followed by the
// secret.
func Sign(params map[string]string, secret string) (string, error) {
	v := url.Values{}
	for k, s := range params {
		if s != "" {
			v.Set(k, s)
		}
	}
	return api.SignParameters(v, secret)
}

// UploadSignature is what a client needs to upload directly to the CDN.
type UploadSignature struct {
	Signature    string `json:"signature"`
	Timestamp    int64  `json:"timestamp"`
	CloudName    string `json:"cloudName"`
	APIKey       string `json:"apiKey"`
	Folder       string `json:"folder"`
	UploadPreset string `json:"uploadPreset"`
	ResourceType string `json:"resourceType"`
}

// SignUpload signs an upload into folder. Empty folder and resource type
// fall back to the configured folder and "auto".
func (c *Client) SignUpload(folder, resourceType string) (*UploadSignature, error) {
	if folder == "" {
		folder = c.cfg.Folder
	}
	if resourceType == "" {
		resourceType = "auto"
	}
	ts := c.now().Unix()
	sig, err := Sign(map[string]string{
		"folder":        folder,
		"timestamp":     strconv.FormatInt(ts, 10),
		"upload_preset": c.cfg.UploadPreset,
	}, c.cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("sign upload: %w", err)
	}

	return &UploadSignature{
		Signature:    sig,
		Timestamp:    ts,
		CloudName:    c.cfg.CloudName,
		APIKey:       c.cfg.APIKey,
		Folder:       folder,
		UploadPreset: c.cfg.UploadPreset,
		ResourceType: resourceType,
	}, nil
}

// URL builds a delivery URL. An empty transformation yields the original
// asset. Ids the SDK cannot render give "".
func (c *Client) URL(publicID, resourceType, transformation string) string {
	var (
		a   *asset.Asset
		err error
	)
	switch resourceType {
	case "video":
		a, err = c.cld.Video(publicID)
	case "raw":
		a, err = c.cld.File(publicID)
	default:
		a, err = c.cld.Image(publicID)
	}
	if err != nil {
		return ""
	}
	a.Transformation = transformation
	s, err := a.String()
	if err != nil {
		return ""
	}
	// Drop the SDK's analytics marker.
	s, _, _ = strings.Cut(s, "?_a=")
	return s
}

// OptimizedURL returns the delivery URL with automatic quality and format.
func (c *Client) OptimizedURL(publicID, resourceType string) string {
	return c.URL(publicID, resourceType, optimized)
}

// ThumbnailURL returns a 200x200 filled thumbnail URL for images and ""
// for any other resource type.
func (c *Client) ThumbnailURL(publicID, resourceType string) string {
	if resourceType != "" && resourceType != DefaultResourceType {
		return ""
	}
	return c.URL(publicID, resourceType, thumbnail)
}

// Resource describes an uploaded asset.
type Resource struct {
	PublicID     string `json:"public_id"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Bytes        int64  `json:"bytes"`
	ResourceType string `json:"resource_type"`
	CreatedAt    string `json:"created_at"`
}

// Resource fetches asset details from the admin API.
func (c *Client) Resource(ctx context.Context, publicID, resourceType string) (*Resource, error) {
	if resourceType == "" {
		resourceType = DefaultResourceType
	}
	res, err := c.cld.Admin.Asset(ctx, admin.AssetParams{
		PublicID:     publicID,
		AssetType:    api.AssetType(resourceType),
		DeliveryType: api.Upload,
	})
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", publicID, classify(err.Error()))
	}
	if msg := res.Error.Message; msg != "" {
		return nil, fmt.Errorf("resource %s: %w", publicID, classify(msg))
	}

	out := &Resource{
		PublicID:     res.PublicID,
		Format:       res.Format,
		Width:        int(res.Width),
		Height:       int(res.Height),
		Bytes:        int64(res.Bytes),
		ResourceType: res.ResourceType,
	}
	if !res.CreatedAt.IsZero() {
		out.CreatedAt = res.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out, nil
}

// Destroy deletes an asset through the signed upload API.
func (c *Client) Destroy(ctx context.Context, publicID, resourceType string) error {
	if resourceType == "" {
		resourceType = DefaultResourceType
	}
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		Type:         string(api.Upload),
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", publicID, classify(err.Error()))
	}
	if msg := res.Error.Message; msg != "" {
		return fmt.Errorf("destroy %s: %w", publicID, classify(msg))
	}
	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return fmt.Errorf("destroy %s: %w", publicID, ErrNotFound)
	default:
		return fmt.Errorf("destroy %s: unexpected result %q", publicID, res.Result)
	}
}

// classify turns a CDN error message into ErrNotFound where it says so.
func classify(msg string) error {
	if strings.Contains(strings.ToLower(msg), "not found") {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("cdn error: %s", msg)
}
