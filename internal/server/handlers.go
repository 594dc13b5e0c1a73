package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/verify"
)

// maxProofSize bounds proof uploads at 10 MB; phone screenshots are well
// under this.
const maxProofSize = 10 << 20

type verifyResponse struct {
	*verify.Result
	ReceiptPath string `json:"receipt_path,omitempty"`
}

// handleVerify accepts a multipart proof upload and runs the pipeline.
// Fields: customer_id (required), proof (required file), invoice_id,
// force_manual_review, bypass_amount_check.
func (s *Server) handleVerify(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.PostForm("customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id is required"})
		return
	}

	fileHeader, err := c.FormFile("proof")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required"})
		return
	}
	if fileHeader.Size > maxProofSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "proof file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read proof file"})
		return
	}
	defer file.Close()

	proof, err := io.ReadAll(io.LimitReader(file, maxProofSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read proof file"})
		return
	}

	opts := verify.Options{
		ForceManualReview: c.PostForm("force_manual_review") == "true",
		BypassAmountCheck: c.PostForm("bypass_amount_check") == "true",
	}
	if raw := c.PostForm("invoice_id"); raw != "" {
		opts.InvoiceID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice_id"})
			return
		}
	}

	result, err := s.pipeline.Verify(c.Request.Context(), customerID, proof, opts)
	if err != nil {
		s.logger.Error("Verification failed", zap.Int64("customer_id", customerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	resp := verifyResponse{Result: result}
	if result.Success && s.receipts != nil {
		// Receipt generation is best-effort; the payment already stands.
		if path, err := s.generateReceipt(customerID, result); err != nil {
			s.logger.Warn("Failed to generate receipt", zap.Error(err))
		} else {
			resp.ReceiptPath = path
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) generateReceipt(customerID int64, result *verify.Result) (string, error) {
	customer, err := s.pipeline.Customer(customerID)
	if err != nil {
		return "", err
	}
	return s.receipts.Generate(customer, result.Invoice, result.Payment)
}

// handleStats reports aggregates over the verification audit log.
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.logs.Stats()
	if err != nil {
		s.logger.Error("Failed to load verification stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
