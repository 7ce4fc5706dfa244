package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/stayloop/stayloop/internal/payment/domain"
	paymentsvc "github.com/stayloop/stayloop/internal/payment/service"
	"github.com/stayloop/stayloop/internal/receipt"
)

type createPaymentRequest struct {
	CustomerID  string `json:"customer_id" binding:"required"`
	BookingID   string `json:"booking_id"`
	Amount      int64  `json:"amount" binding:"required"`
	PeriodMonth int    `json:"period_month" binding:"required,min=1,max=12"`
	PeriodYear  int    `json:"period_year" binding:"required"`
	DueDate     string `json:"due_date"`
	Notes       string `json:"notes"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customerID, err := snowflake.ParseString(req.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_id", "invalid customer id"))
		return
	}

	var bookingID *snowflake.ID
	if req.BookingID != "" {
		parsed, err := snowflake.ParseString(req.BookingID)
		if err != nil {
			AbortWithError(c, newValidationError("booking_id", "invalid_id", "invalid booking id"))
			return
		}
		bookingID = &parsed
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			AbortWithError(c, newValidationError("due_date", "invalid_date", "expected YYYY-MM-DD"))
			return
		}
		dueDate = &parsed
	}

	created, err := s.paymentSvc.Create(c.Request.Context(), paymentsvc.CreateParams{
		CustomerID:  customerID,
		BookingID:   bookingID,
		Amount:      req.Amount,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
		DueDate:     dueDate,
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListPayments(c *gin.Context) {
	identity := identityFrom(c)

	items, err := s.paymentSvc.ListByCustomer(c.Request.Context(), identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": items})
}

func (s *Server) ListAllPayments(c *gin.Context) {
	items, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.Status(c.Query("status")), parseLimit(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": items})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	identity := identityFrom(c)

	payment, err := s.findOwnedPayment(c, identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) InitiatePayment(c *gin.Context) {
	identity := identityFrom(c)

	payment, err := s.findOwnedPayment(c, identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.paymentSvc.Initiate(c.Request.Context(), payment.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment":      result.Payment,
		"redirect_url": result.RedirectURL,
	})
}

// PollPaymentStatus asks the gateway for the order's current state. Polls are
// rate limited per payment to keep impatient clients from hammering the
// gateway.
func (s *Server) PollPaymentStatus(c *gin.Context) {
	identity := identityFrom(c)

	payment, err := s.findOwnedPayment(c, identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !s.pollLimiter.Allow(c.Request.Context(), "ratelimit:payment:status:"+payment.ID.String()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	refreshed, err := s.paymentSvc.PollStatus(c.Request.Context(), payment.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, refreshed)
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	identity := identityFrom(c)

	payment, err := s.findOwnedPayment(c, identity.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment.Status != paymentdomain.StatusCompleted {
		AbortWithError(c, paymentdomain.ErrInvalidState)
		return
	}

	data, err := s.receiptData(c, payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.receiptGen.Generate(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", payment.ID.String()))
	c.DataFromReader(http.StatusOK, -1, "application/pdf", doc, nil)
}

func (s *Server) receiptData(c *gin.Context, payment *paymentdomain.PaymentRecord) (receipt.Data, error) {
	tenant, err := s.customerSvc.Get(c.Request.Context(), payment.CustomerID)
	if err != nil {
		return receipt.Data{}, err
	}

	data := receipt.Data{
		ReceiptNumber: "RCT-" + payment.ID.String(),
		DatePaid:      payment.CompletedAt.Format("02 Jan 2006"),
		BusinessName:  s.cfg.AppName,
		TenantName:    tenant.Name,
		TenantEmail:   tenant.Email,
		Period:        fmt.Sprintf("%s %d", time.Month(payment.PeriodMonth), payment.PeriodYear),
		Amount:        formatMinorUnits(payment.Amount + payment.LateFee),
	}
	if payment.MerchantOrderID != nil {
		data.PaymentRef = *payment.MerchantOrderID
	}

	if payment.BookingID != nil {
		booking, err := s.bookingSvc.Get(c.Request.Context(), *payment.BookingID)
		if err != nil {
			return receipt.Data{}, err
		}
		room, err := s.roomSvc.Get(c.Request.Context(), booking.RoomID)
		if err != nil {
			return receipt.Data{}, err
		}
		property, err := s.propertySvc.Get(c.Request.Context(), booking.PropertyID)
		if err != nil {
			return receipt.Data{}, err
		}
		data.PropertyName = property.Name
		data.PropertyAddr = property.Address
		data.RoomNumber = room.Number
	}
	return data, nil
}

func (s *Server) findOwnedPayment(c *gin.Context, customerID snowflake.ID) (*paymentdomain.PaymentRecord, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		return nil, newValidationError("id", "invalid_id", "invalid payment id")
	}

	payment, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !isStaff(identityFrom(c)) && payment.CustomerID != customerID {
		return nil, paymentdomain.ErrNotPaymentOwner
	}
	return payment, nil
}

func formatMinorUnits(amount int64) string {
	return fmt.Sprintf("INR %.2f", float64(amount)/100)
}
