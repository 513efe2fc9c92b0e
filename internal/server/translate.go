package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"go.aimuz.me/livetrans/internal/types"
)

type translateRequest struct {
	Text string `json:"text"`
}

// handleTranslate streams one translation as newline-delimited JSON, one
// TranslationResult per line.
func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(res)
	err := s.backend.Translate(c.Request().Context(), req.Text, func(r types.TranslationResult) {
		if err := enc.Encode(r); err != nil {
			slog.Debug("write translation", "error", err)
			return
		}
		res.Flush()
	})
	if err != nil {
		slog.Warn("translate request", "error", err)
	}
	return nil
}
