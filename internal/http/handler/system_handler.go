package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anan1218/homehealth/internal/config"
)

// SystemHandler serves the unauthenticated liveness endpoints and the
// placeholder feature routes.
type SystemHandler struct {
	projectName string
	serviceName string
}

// NewSystemHandler builds the handler from configuration.
func NewSystemHandler(cfg config.Config) *SystemHandler {
	return &SystemHandler{projectName: cfg.ProjectName, serviceName: cfg.ServiceName}
}

// Root reports that the API is running.
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s API is running", h.projectName)})
}

// Health reports liveness.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": h.serviceName})
}

func (h *SystemHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "User management feature - coming soon"})
}

func (h *SystemHandler) GetUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s details - coming soon", c.Param("user_id"))})
}

func (h *SystemHandler) ListHealthRecords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Health tracking feature - coming soon"})
}

func (h *SystemHandler) CreateHealthRecord(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Health record creation - coming soon"})
}
