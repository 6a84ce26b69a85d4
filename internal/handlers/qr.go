package handlers

import (
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// HandleQR renders a PNG QR code that lets another table join a session
func (ctx *Context) HandleQR(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/sessions/")
	if len(parts) != 2 || parts[1] != "qr" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := ctx.loadSession(w, r, parts[0])
	if !ok {
		return
	}

	png, err := qrcode.Encode(ctx.joinLink(s.Code), qrcode.Medium, qrSize)
	if err != nil {
		ctx.Logger.Error("encode qr", "code", s.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "could not render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (ctx *Context) joinLink(code string) string {
	if ctx.PublicURL == "" {
		return code
	}
	return strings.TrimSuffix(ctx.PublicURL, "/") + "/api/sessions/" + code
}

