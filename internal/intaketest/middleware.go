package intaketest

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uc4u2/candidate-intake/internal/pkg/response"
	"go.uber.org/zap"
)

// requestLog logs each request to the test log and counts API calls that
// arrive without a request id.
func (s *Server) requestLog(host string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		id := c.GetHeader("X-Request-Id")
		if id == "" && host == "api" {
			s.count("api.no_request_id")
		}

		c.Next()

		s.log.Debug("request",
			zap.String("host", host),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", id),
		)
	}
}

func (s *Server) recruiterAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			response.Unauthorized(c)
			return
		}
		claims, err := s.Signer.Parse(raw)
		if err != nil {
			response.Unauthorized(c)
			return
		}
		if claims.CompanyID != "" && c.GetHeader("X-Company-Id") != claims.CompanyID {
			response.Forbidden(c, "Company mismatch")
			return
		}
		c.Next()
	}
}

// candidateOnly counts candidate calls that leak the recruiter company header.
func (s *Server) candidateOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Company-Id") != "" {
			s.count("candidate.company_header")
		}
		c.Next()
	}
}
