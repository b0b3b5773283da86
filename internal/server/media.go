package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rcliao/companion/internal/media"
)

func (s *Server) handleSignUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder       string `json:"folder"`
		ResourceType string `json:"resourceType"`
	}
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sig, err := s.media.SignUpload(req.Folder, req.ResourceType)
	if err != nil {
		s.log.Error("sign upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate upload signature")
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

type verifyResponse struct {
	Success      bool    `json:"success"`
	PublicID     string  `json:"publicId"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	Format       string  `json:"format"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Bytes        int64   `json:"bytes"`
	ResourceType string  `json:"resourceType"`
	CreatedAt    string  `json:"createdAt"`
}

func (s *Server) handleVerifyUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicID     string `json:"publicId"`
		ResourceType string `json:"resourceType"`
	}
	if err := decodeJSON(r, &req, false); err != nil || req.PublicID == "" {
		writeError(w, http.StatusBadRequest, "publicId is required")
		return
	}
	if req.ResourceType == "" {
		req.ResourceType = media.DefaultResourceType
	}

	res, err := s.media.Resource(r.Context(), req.PublicID, req.ResourceType)
	if err != nil {
		s.log.Error("verify upload failed", zap.String("public_id", req.PublicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to verify upload")
		return
	}

	out := verifyResponse{
		Success:      true,
		PublicID:     res.PublicID,
		URL:          s.media.OptimizedURL(req.PublicID, req.ResourceType),
		Format:       res.Format,
		Width:        res.Width,
		Height:       res.Height,
		Bytes:        res.Bytes,
		ResourceType: res.ResourceType,
		CreatedAt:    res.CreatedAt,
	}
	if thumb := s.media.ThumbnailURL(req.PublicID, req.ResourceType); thumb != "" {
		out.ThumbnailURL = &thumb
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("publicId")
	resourceType := r.URL.Query().Get("type")
	if resourceType == "" {
		resourceType = media.DefaultResourceType
	}
	if err := s.media.Destroy(r.Context(), publicID, resourceType); err != nil {
		s.log.Error("delete media failed", zap.String("public_id", publicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete media")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Media deleted"})
}
