package api

import (
	"fmt"
	"net/http"

	"github.com/portfolio-tracker/internal/logging"
)

// portfolioErrorMessage is the fixed body returned when valuation fails
const portfolioErrorMessage = "Failed to fetch portfolio data"

// handleGetPortfolio returns the current portfolio report.
// Any valuation failure is reported as a 500 without partial data.
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	report, err := s.portfolioService.GetPortfolio(r.Context())
	if err != nil {
		logger.WithError(err).Error("Failed to compute portfolio")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": portfolioErrorMessage})
		return
	}

	logger.WithFields(map[string]interface{}{
		"cached": report.Cached,
		"assets": len(report.Assets),
	}).Debug("Serving portfolio")

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.config.CacheMaxAge.Seconds())))
	respondJSON(w, http.StatusOK, report)
}
