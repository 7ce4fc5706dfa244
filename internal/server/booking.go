package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	bookingdomain "github.com/stayloop/stayloop/internal/booking/domain"
	bookingsvc "github.com/stayloop/stayloop/internal/booking/service"
)

type createBookingRequest struct {
	RoomID      string `json:"room_id" binding:"required"`
	CheckInDate string `json:"check_in_date"`
	Notes       string `json:"notes"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	identity := identityFrom(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	roomID, err := snowflake.ParseString(req.RoomID)
	if err != nil {
		AbortWithError(c, newValidationError("room_id", "invalid_id", "invalid room id"))
		return
	}

	var checkIn time.Time
	if req.CheckInDate != "" {
		checkIn, err = time.Parse("2006-01-02", req.CheckInDate)
		if err != nil {
			AbortWithError(c, newValidationError("check_in_date", "invalid_date", "expected YYYY-MM-DD"))
			return
		}
	}

	created, err := s.bookingSvc.Create(c.Request.Context(), bookingsvc.CreateParams{
		CustomerID:  identity.CustomerID,
		RoomID:      roomID,
		CheckInDate: checkIn,
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListBookings(c *gin.Context) {
	identity := identityFrom(c)

	items, err := s.bookingSvc.ListByCustomer(c.Request.Context(), identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": items})
}

func (s *Server) GetBookingByID(c *gin.Context) {
	identity := identityFrom(c)

	booking, err := s.findOwnedBooking(c, identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) CancelBooking(c *gin.Context) {
	identity := identityFrom(c)

	booking, err := s.findOwnedBooking(c, identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.bookingSvc.Cancel(c.Request.Context(), booking.ID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) CompleteBooking(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid booking id"))
		return
	}

	if err := s.bookingSvc.Complete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (s *Server) ListAllBookings(c *gin.Context) {
	items, err := s.bookingSvc.List(c.Request.Context(), bookingdomain.Status(c.Query("status")), parseLimit(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": items})
}

// findOwnedBooking loads the booking in the path and enforces ownership for
// non-staff callers.
func (s *Server) findOwnedBooking(c *gin.Context, customerID snowflake.ID) (*bookingdomain.Booking, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		return nil, newValidationError("id", "invalid_id", "invalid booking id")
	}

	booking, err := s.bookingSvc.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !isStaff(identityFrom(c)) && booking.CustomerID != customerID {
		return nil, bookingdomain.ErrNotBookingOwner
	}
	return booking, nil
}

func parseLimit(c *gin.Context) int {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			limit = parsed
		}
	}
	if limit > 200 {
		limit = 200
	}
	return limit
}
