package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/Brownie44l1/stylescope/internal/imageio"
	"github.com/Brownie44l1/stylescope/internal/segmentation"
	"github.com/Brownie44l1/stylescope/internal/styleloss"
)

const maxUploadSize = 10 << 20

type Segmenter interface {
	SegmentBytes(data []byte, silhouette bool) ([]segmentation.Mask, error)
}

type Handler struct {
	segmenter Segmenter
	norm      styleloss.Normalization
}

// NewHandler returns a Handler. segmenter may be nil when no model is
// loaded, in which case /segment answers 503.
func NewHandler(segmenter Segmenter, norm styleloss.Normalization) *Handler {
	return &Handler{
		segmenter: segmenter,
		norm:      norm,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status":       "healthy",
		"segmentation": strconv.FormatBool(h.segmenter != nil),
	}, http.StatusOK)
}

// StyleLoss scores the "result" upload against the "style" upload.
func (h *Handler) StyleLoss(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	resultData, err := readFormFile(r, "result")
	if err != nil {
		respondUploadError(w, "result", err)
		return
	}
	styleData, err := readFormFile(r, "style")
	if err != nil {
		respondUploadError(w, "style", err)
		return
	}

	result, err := imageio.Decode(resultData)
	if err != nil {
		respondError(w, "Invalid result image. Supported: JPEG, PNG, GIF, WebP", http.StatusBadRequest)
		return
	}
	style, err := imageio.Decode(styleData)
	if err != nil {
		respondError(w, "Invalid style image. Supported: JPEG, PNG, GIF, WebP", http.StatusBadRequest)
		return
	}

	loss := styleloss.StyleLossImages(result, style, h.norm)
	log.Printf("Style loss %.6f (%s normalization)", loss, h.norm)

	respondJSON(w, StyleLossResponse{Loss: loss, Normalization: h.norm.String()}, http.StatusOK)
}

// Segment returns the masks of the most frequent classes in the "image"
// upload. Query parameter silhouette=true selects palette-colored masks.
func (h *Handler) Segment(w http.ResponseWriter, r *http.Request) {
	if h.segmenter == nil {
		respondError(w, "Segmentation model not loaded", http.StatusServiceUnavailable)
		return
	}

	silhouette := false
	if v := r.URL.Query().Get("silhouette"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, "silhouette must be a boolean", http.StatusBadRequest)
			return
		}
		silhouette = b
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	data, err := readFormFile(r, "image")
	if err != nil {
		respondUploadError(w, "image", err)
		return
	}

	masks, err := h.segmenter.SegmentBytes(data, silhouette)
	if errors.Is(err, imageio.ErrDecode) {
		respondError(w, "Invalid image format. Supported: JPEG, PNG, GIF, WebP", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("Segmentation error: %v", err)
		respondError(w, "Segmentation failed", http.StatusInternalServerError)
		return
	}

	resp := SegmentResponse{Silhouette: silhouette, Masks: make([]MaskResponse, 0, len(masks))}
	for _, m := range masks {
		var buf bytes.Buffer
		if err := imageio.EncodePNG(&buf, m.Image); err != nil {
			log.Printf("Mask encoding error: %v", err)
			respondError(w, "Failed to encode mask", http.StatusInternalServerError)
			return
		}
		resp.Width, resp.Height = m.Image.Bounds().Dx(), m.Image.Bounds().Dy()
		resp.Masks = append(resp.Masks, MaskResponse{
			Class:  m.Class,
			Name:   m.Name,
			Pixels: m.Pixels,
			Color:  m.Color,
			PNG:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}

	respondJSON(w, resp, http.StatusOK)
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing form field %q: %w", field, err)
	}
	defer file.Close()

	log.Printf("Received %s: %s, size: %d bytes", field, header.Filename, header.Size)
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", field, err)
	}
	return data, nil
}

func respondUploadError(w http.ResponseWriter, field string, err error) {
	log.Printf("Upload error: %v", err)
	respondError(w, fmt.Sprintf("No image file provided. Use '%s' as the form field name", field), http.StatusBadRequest)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
