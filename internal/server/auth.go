package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/stayloop/stayloop/internal/customer/domain"
	customersvc "github.com/stayloop/stayloop/internal/customer/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

type authResponse struct {
	Token    string                   `json:"token"`
	Customer *customerdomain.Customer `json:"customer"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.customerSvc.Register(c.Request.Context(), customersvc.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     customerdomain.RoleCustomer,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, err := s.tokens.Issue(created, s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, Customer: created})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.customerSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, err := s.tokens.Issue(account, s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, Customer: account})
}

func (s *Server) Me(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	account, err := s.customerSvc.Get(c.Request.Context(), identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
