package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1700000000, 0)

func newClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	c, err := New(Config{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		APIURL:    apiURL,
	})
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClient(t, srv.URL+"/")
}

func TestSign(t *testing.T) {
	got, err := Sign(map[string]string{
		"upload_preset": "jia_unsigned",
		"timestamp":     "1700000000",
		"folder":        "jia-uploads",
		"ignored":       "",
	}, "secret")
	require.NoError(t, err)
	assert.Equal(t, "3ac2d13b97c8a440a6921d2bade7aa32caa2141e", got)
}

func TestSignUploadDefaults(t *testing.T) {
	c := newClient(t, "")

	sig, err := c.SignUpload("", "")
	require.NoError(t, err)
	assert.Equal(t, "3ac2d13b97c8a440a6921d2bade7aa32caa2141e", sig.Signature)
	assert.Equal(t, int64(1700000000), sig.Timestamp)
	assert.Equal(t, DefaultFolder, sig.Folder)
	assert.Equal(t, DefaultUploadPreset, sig.UploadPreset)
	assert.Equal(t, "auto", sig.ResourceType)
	assert.Equal(t, "demo", sig.CloudName)
	assert.Equal(t, "key", sig.APIKey)

	other, err := c.SignUpload("avatars", "video")
	require.NoError(t, err)
	assert.NotEqual(t, sig.Signature, other.Signature)
	assert.Equal(t, "video", other.ResourceType)
}

func TestURLs(t *testing.T) {
	c := newClient(t, "")

	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/c_fill,f_auto,h_200,q_auto,w_200/cat",
		c.ThumbnailURL("cat", "image"))
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/f_auto,q_auto/cat",
		c.OptimizedURL("cat", ""))
	assert.Equal(t, "", c.ThumbnailURL("clip", "video"))
	assert.Equal(t, "https://res.cloudinary.com/demo/video/upload/f_auto,q_auto/clip",
		c.OptimizedURL("clip", "video"))

	// Foldered ids may carry a version segment.
	u := c.OptimizedURL("jia-uploads/cat", "image")
	assert.True(t, strings.HasPrefix(u, "https://res.cloudinary.com/demo/image/upload/f_auto,q_auto/"), u)
	assert.True(t, strings.HasSuffix(u, "/jia-uploads/cat"), u)
	assert.NotContains(t, u, "?")
}

func TestResource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1_1/demo/resources/image/upload/jia-uploads/cat", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"public_id":"jia-uploads/cat","format":"jpg","width":640,"height":480,
			"bytes":12345,"resource_type":"image","type":"upload","created_at":"2026-03-01T12:00:00Z"}`)
	})

	res, err := c.Resource(context.Background(), "jia-uploads/cat", "")
	require.NoError(t, err)
	assert.Equal(t, "jia-uploads/cat", res.PublicID)
	assert.Equal(t, 640, res.Width)
	assert.Equal(t, int64(12345), res.Bytes)
	assert.Equal(t, "2026-03-01T12:00:00Z", res.CreatedAt)
}

func TestResourceErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"Resource not found - missing"}}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid api_key"}}`)
	})

	_, err := c.Resource(context.Background(), "missing", "image")
	assert.True(t, errors.Is(err, ErrNotFound), "%v", err)

	_, err = c.Resource(context.Background(), "other", "image")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Invalid api_key")
}

func TestDestroy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1_1/demo/image/destroy", r.URL.Path)
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.NotEmpty(t, r.FormValue("timestamp"))
		assert.Len(t, r.FormValue("signature"), 40)

		w.Header().Set("Content-Type", "application/json")
		switch r.FormValue("public_id") {
		case "cat":
			fmt.Fprint(w, `{"result":"ok"}`)
		default:
			fmt.Fprint(w, `{"result":"not found"}`)
		}
	})

	require.NoError(t, c.Destroy(context.Background(), "cat", ""))
}

func TestDestroyNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1_1/demo/video/destroy", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"not found"}`)
	})

	err := c.Destroy(context.Background(), "gone", "video")
	assert.True(t, errors.Is(err, ErrNotFound), "%v", err)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("Resource not found - x"), ErrNotFound)
	assert.NotErrorIs(t, classify("Invalid api_key"), ErrNotFound)
}
