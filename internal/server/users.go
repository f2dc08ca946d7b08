package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
)

type createUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type staffUserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	companyID, ok := companyctx.CompanyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = authdomain.RoleSales
	}

	user, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		CompanyID:   companyID,
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toStaffUser(*user)})
}

func (s *Server) ListUsers(c *gin.Context) {
	companyID, ok := companyctx.CompanyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	users, err := s.authsvc.ListUsers(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]staffUserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toStaffUser(user))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func toStaffUser(user authdomain.User) staffUserResponse {
	return staffUserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
}
