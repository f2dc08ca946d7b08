package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	publicdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/domain"
)

// publicQuoteToken validates the token path parameter without touching
// the database. Tokens are 32 lowercase hex characters; anything else
// is indistinguishable from a dead link.
func publicQuoteToken(c *gin.Context) (string, bool) {
	token := strings.TrimSpace(c.Param("token"))
	if len(token) != 32 {
		return "", false
	}
	for _, r := range token {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", false
		}
	}
	return token, true
}

// respondQuoteUnavailable is the single dead-link response. The
// payload is stable so the quote page can show its own copy.
func respondQuoteUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"code":    "QUOTE_NOT_AVAILABLE",
		"message": "This quote is not available.",
	})
}

func (s *Server) handlePublicQuoteError(c *gin.Context, err error) {
	if errors.Is(err, publicdomain.ErrQuoteUnavailable) {
		respondQuoteUnavailable(c)
		return
	}
	AbortWithError(c, err)
}

func (s *Server) GetPublicQuote(c *gin.Context) {
	token, ok := publicQuoteToken(c)
	if !ok {
		respondQuoteUnavailable(c)
		return
	}
	if !s.publicLimiter.AllowView(c.Request.Context(), token, c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	resp, err := s.publicQuoteSvc.GetByToken(c.Request.Context(), token)
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdatePublicSelection(c *gin.Context) {
	token, ok := publicQuoteToken(c)
	if !ok {
		respondQuoteUnavailable(c)
		return
	}
	if !s.publicLimiter.AllowUpdate(c.Request.Context(), token, c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req publicdomain.UpdateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.publicQuoteSvc.UpdateSelection(c.Request.Context(), token, req)
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) AcceptPublicQuote(c *gin.Context) {
	token, ok := publicQuoteToken(c)
	if !ok {
		respondQuoteUnavailable(c)
		return
	}
	if !s.publicLimiter.AllowUpdate(c.Request.Context(), token, c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	// The body is optional: no package means accepting the current
	// line selection.
	var req publicdomain.AcceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	// One accept at a time per quote; the lease is advisory and the
	// status-guarded update settles any race that slips through.
	lease, acquired := s.publicLimiter.AcquireAcceptLease(c.Request.Context(), token)
	if !acquired {
		AbortWithError(c, ErrRateLimited)
		return
	}
	defer s.publicLimiter.ReleaseAcceptLease(c.Request.Context(), token, lease)

	resp, err := s.publicQuoteSvc.Accept(c.Request.Context(), token, req)
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeclinePublicQuote(c *gin.Context) {
	token, ok := publicQuoteToken(c)
	if !ok {
		respondQuoteUnavailable(c)
		return
	}
	if !s.publicLimiter.AllowUpdate(c.Request.Context(), token, c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	resp, err := s.publicQuoteSvc.Decline(c.Request.Context(), token)
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
