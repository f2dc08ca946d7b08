package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
)

func (s *Server) CreateRequirements(c *gin.Context) {
	var req requirementsdomain.CreateRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.requirementsSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRequirements(c *gin.Context) {
	quoteID := strings.TrimSpace(c.Query("quote_id"))
	if quoteID != "" {
		resp, err := s.requirementsSvc.GetByQuote(c.Request.Context(), quoteID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	resp, err := s.requirementsSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRequirements(c *gin.Context) {
	resp, err := s.requirementsSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRequirements(c *gin.Context) {
	var req requirementsdomain.UpdateRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.requirementsSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRequirements(c *gin.Context) {
	if err := s.requirementsSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
