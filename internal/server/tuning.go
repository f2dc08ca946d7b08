package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetTuningInsights(c *gin.Context) {
	resp, err := s.tuningSvc.Insights(c.Request.Context(), strings.TrimSpace(c.Param("ruleKey")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
