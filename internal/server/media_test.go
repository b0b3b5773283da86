package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/companion/internal/media"
)

type fakeMedia struct {
	*media.Client

	resource   *media.Resource
	err        error
	destroyed  []string
	destroyErr error
}

func (f *fakeMedia) Resource(_ context.Context, publicID, resourceType string) (*media.Resource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resource, nil
}

func (f *fakeMedia) Destroy(_ context.Context, publicID, resourceType string) error {
	f.destroyed = append(f.destroyed, resourceType+":"+publicID)
	return f.destroyErr
}

func newFakeMedia(t *testing.T) *fakeMedia {
	t.Helper()
	c, err := media.New(media.Config{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	return &fakeMedia{Client: c}
}

func TestSignUpload(t *testing.T) {
	h := newTestServer(t, Config{Media: newFakeMedia(t)}).Handler()

	rec := do(t, h, http.MethodPost, "/media/sign-upload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Len(t, body["signature"], 40)
	assert.Equal(t, "jia-uploads", body["folder"])
	assert.Equal(t, "jia_unsigned", body["uploadPreset"])
	assert.Equal(t, "auto", body["resourceType"])
	assert.Equal(t, "demo", body["cloudName"])

	rec = do(t, h, http.MethodPost, "/media/sign-upload", `{"folder":"avatars","resourceType":"image"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "avatars", decode(t, rec)["folder"])
}

func TestVerifyUpload(t *testing.T) {
	fm := newFakeMedia(t)
	fm.resource = &media.Resource{PublicID: "jia-uploads/cat", Format: "jpg", Width: 640, Height: 480,
		Bytes: 1234, ResourceType: "image", CreatedAt: "2026-10-16T09:00:00Z"}
	h := newTestServer(t, Config{Media: fm}).Handler()

	rec := do(t, h, http.MethodPost, "/media/verify-upload", `{"publicId":"jia-uploads/cat"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"success": true,
		"publicId": "jia-uploads/cat",
		"url": "`+fm.OptimizedURL("jia-uploads/cat", "image")+`",
		"thumbnailUrl": "`+fm.ThumbnailURL("jia-uploads/cat", "image")+`",
		"format": "jpg",
		"width": 640,
		"height": 480,
		"bytes": 1234,
		"resourceType": "image",
		"createdAt": "2026-10-16T09:00:00Z"
	}`, rec.Body.String())

	fm.resource.ResourceType = "video"
	rec = do(t, h, http.MethodPost, "/media/verify-upload", `{"publicId":"clip","resourceType":"video"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["thumbnailUrl"])
	assert.Equal(t, fm.OptimizedURL("clip", "video"), body["url"])
	assert.Contains(t, body["url"], "/demo/video/upload/f_auto,q_auto/")

	rec = do(t, h, http.MethodPost, "/media/verify-upload", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fm.err = errors.New("cdn down")
	rec = do(t, h, http.MethodPost, "/media/verify-upload", `{"publicId":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to verify upload", decode(t, rec)["error"])
}

func TestDeleteMedia(t *testing.T) {
	fm := newFakeMedia(t)
	h := newTestServer(t, Config{Media: fm}).Handler()

	rec := do(t, h, http.MethodDelete, "/media/jia-uploads/cat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Media deleted"}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/media/clip?type=video", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"image:jia-uploads/cat", "video:clip"}, fm.destroyed)

	fm.destroyErr = media.ErrNotFound
	rec = do(t, h, http.MethodDelete, "/media/gone", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to delete media", decode(t, rec)["error"])
}

func TestMediaRoutesNeedClient(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/media/sign-upload", "").Code)
}
