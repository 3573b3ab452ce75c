package handlers

import (
	"net/http"

	"github.com/eproba/eproba-api/internal/config"
	"github.com/eproba/eproba-api/internal/constants"
	"github.com/gin-gonic/gin"
)

// ConfigHandler exposes the feature-flag snapshot clients poll at
// startup.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GetConfig returns server version and maintenance flags. No auth: the
// mobile app checks this before login.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"server_version":       constants.Version,
		"maintenance_mode":     h.cfg.MaintenanceMode,
		"api_maintenance_mode": h.cfg.APIMaintenanceMode,
		"minimum_app_version":  h.cfg.MinimumAppVersion,
	})
}
