package gateway

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"quizchase/internal/game"
)

// QRHandler renders a QR code pointing a second player at a room's join
// URL, so a phone can scan its way into the duel.
type QRHandler struct {
	registry  *game.Registry
	publicURL string
}

func NewQRHandler(registry *game.Registry, publicURL string) *QRHandler {
	return &QRHandler{registry: registry, publicURL: publicURL}
}

func (h *QRHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}
	if _, ok := h.registry.Get(code); !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	joinURL := fmt.Sprintf("%s/join?code=%s", h.publicURL, code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to render join QR code")
		http.Error(w, "failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
