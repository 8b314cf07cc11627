package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/devfolio/backend/internal/errors"
)

// allowedImageTypes are the content types accepted for image uploads.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Presigner issues time-limited upload URLs. *storage.Client satisfies it.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}

type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// UploadHandlers serves presigned upload URLs so image bytes never transit the
// API. Admin-only; the router applies the gate.
type UploadHandlers struct {
	presigner Presigner
	expiry    time.Duration
}

func NewUploadHandlers(presigner Presigner, expiry time.Duration) *UploadHandlers {
	return &UploadHandlers{presigner: presigner, expiry: expiry}
}

func (h *UploadHandlers) Presign(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	var req PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid request body"))
		return
	}

	ext, ok := allowedImageTypes[strings.ToLower(req.ContentType)]
	if !ok {
		apperrors.WriteError(w, requestID, apperrors.ValidationError("unsupported content type"))
		return
	}

	// The object key is server-generated; the client filename only survives
	// as a sanitized suffix for operator readability.
	base := strings.TrimSuffix(path.Base(req.Filename), path.Ext(req.Filename))
	base = sanitizeKeyPart(base)
	if base == "" {
		base = "image"
	}
	key := fmt.Sprintf("uploads/%s/%s-%s%s",
		time.Now().UTC().Format("2006/01"), uuid.NewString(), base, ext)

	url, err := h.presigner.PresignPut(r.Context(), key, req.ContentType)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.StorageError("failed to create upload url").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, PresignResponse{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(h.expiry.Seconds()),
	})
}

func sanitizeKeyPart(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		}
	}
	out := b.String()
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
