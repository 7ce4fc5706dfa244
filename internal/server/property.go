package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	propertydomain "github.com/stayloop/stayloop/internal/property/domain"
	propertysvc "github.com/stayloop/stayloop/internal/property/service"
	roomdomain "github.com/stayloop/stayloop/internal/room/domain"
	roomsvc "github.com/stayloop/stayloop/internal/room/service"
)

func (s *Server) ListProperties(c *gin.Context) {
	items, err := s.propertySvc.ListActive(c.Request.Context(), c.Query("city"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": items})
}

func (s *Server) GetPropertyBySlug(c *gin.Context) {
	item, err := s.propertySvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) ListPropertyRooms(c *gin.Context) {
	item, err := s.propertySvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rooms, err := s.roomSvc.ListByProperty(c.Request.Context(), item.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type createPropertyRequest struct {
	Name    string `json:"name" binding:"required"`
	Kind    string `json:"kind" binding:"required,oneof=pg hostel apartment"`
	City    string `json:"city" binding:"required"`
	Address string `json:"address"`
}

func (s *Server) CreateProperty(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.propertySvc.Create(c.Request.Context(), propertysvc.CreateParams{
		Name:    req.Name,
		Kind:    propertydomain.Kind(req.Kind),
		City:    req.City,
		Address: req.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type updatePropertyRequest struct {
	Name    *string `json:"name"`
	City    *string `json:"city"`
	Address *string `json:"address"`
	Active  *bool   `json:"active"`
}

func (s *Server) UpdateProperty(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid property id"))
		return
	}

	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.propertySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.City != nil {
		item.City = *req.City
	}
	if req.Address != nil {
		item.Address = *req.Address
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.propertySvc.Update(c.Request.Context(), item); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type createRoomRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
	Number     string `json:"number" binding:"required"`
	Sharing    string `json:"sharing" binding:"required,oneof=single double triple"`
	RentMinor  int64  `json:"rent_minor" binding:"required"`
	Capacity   int    `json:"capacity"`
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	propertyID, err := snowflake.ParseString(req.PropertyID)
	if err != nil {
		AbortWithError(c, newValidationError("property_id", "invalid_id", "invalid property id"))
		return
	}

	created, err := s.roomSvc.Create(c.Request.Context(), roomsvc.CreateParams{
		PropertyID: propertyID,
		Number:     req.Number,
		Sharing:    roomdomain.Sharing(req.Sharing),
		RentMinor:  req.RentMinor,
		Capacity:   req.Capacity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type updateRoomRequest struct {
	Number    *string `json:"number"`
	RentMinor *int64  `json:"rent_minor"`
	Capacity  *int    `json:"capacity"`
}

func (s *Server) UpdateRoom(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid room id"))
		return
	}

	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.roomSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if req.Number != nil {
		item.Number = *req.Number
	}
	if req.RentMinor != nil {
		if *req.RentMinor <= 0 {
			AbortWithError(c, roomdomain.ErrInvalidRent)
			return
		}
		item.RentMinor = *req.RentMinor
	}
	if req.Capacity != nil && *req.Capacity >= item.Occupied {
		item.Capacity = *req.Capacity
	}

	if err := s.roomSvc.Update(c.Request.Context(), item); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
