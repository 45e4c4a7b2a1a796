package handler

import (
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/remotemaster/trustengine/internal/api/dto"
	"github.com/remotemaster/trustengine/internal/crl"
)

// CRLHandler handles CRL generation and metadata requests.
type CRLHandler struct {
	builder     *crl.Builder
	publisher   *crl.Publisher
	publishBase string

	// latest caches the last generated DER for GET /crl.
	mu     sync.RWMutex
	latest []byte
}

// NewCRLHandler creates a new CRLHandler.
func NewCRLHandler(builder *crl.Builder, publisher *crl.Publisher, publishBase string) *CRLHandler {
	return &CRLHandler{
		builder:     builder,
		publisher:   publisher,
		publishBase: publishBase,
	}
}

// Generate handles POST /api/v1/crl/generate. The fresh CRL is also
// published to its well-known location; a publish failure is reported
// in the response but does not fail the generation.
func (h *CRLHandler) Generate(w http.ResponseWriter, r *http.Request) {
	der, err := h.builder.Generate(r.Context())
	if err != nil {
		respondMappedError(w, err)
		return
	}
	h.mu.Lock()
	h.latest = der
	h.mu.Unlock()

	published := h.publisher.Publish(der, h.publishBase)

	meta, err := h.builder.Metadata()
	if err != nil {
		respondMappedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.CRLGenerateResponse{
		CRL:          base64.StdEncoding.EncodeToString(der),
		Number:       meta.Info.Number,
		RevokedCount: meta.RevokedCount,
		NextUpdate:   meta.Info.NextUpdate.Format(time.RFC3339),
		Published:    published,
	})
}

// Get handles GET /api/v1/crl. Returns the last generated CRL as DER.
func (h *CRLHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	der := h.latest
	h.mu.RUnlock()

	if der == nil {
		respondMappedError(w, crl.ErrNoCRLYet)
		return
	}
	w.Header().Set("Content-Type", "application/pkix-crl")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(der)
}

// Metadata handles GET /api/v1/crl/metadata.
func (h *CRLHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.builder.Metadata()
	if err != nil {
		respondMappedError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.CRLMetadataResponse{
		Number:       meta.Info.Number,
		NextUpdate:   meta.Info.NextUpdate.Format(time.RFC3339),
		Hash:         meta.Info.Hash,
		RevokedCount: meta.RevokedCount,
	})
}
