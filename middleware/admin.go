// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"net/http"

	"github.com/VA7DBI/idguard/auth"
	"github.com/VA7DBI/idguard/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireAdmin admits a request when its verified subject is one of
// subjects, or when its token carries claim with the boolean value true.
// An empty claim disables the claim check. It must run after
// Authenticator.Handler.
func RequireAdmin(subjects []string, claim string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		allowed[s] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			metrics.AuthRejections.WithLabelValues(auth.ErrMissingAuthorization.Error()).Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Status: http.StatusUnauthorized,
				Title:  "Unauthorized",
				Detail: "Missing authorization",
			})
			return
		}

		if _, ok := allowed[claims.Subject]; ok {
			c.Next()
			return
		}
		if claim != "" {
			if v, _ := claims.Extra[claim].(bool); v {
				c.Next()
				return
			}
		}

		logger.Warn("administrator privileges required",
			zap.String("subject", claims.Subject),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))
		metrics.AuthRejections.WithLabelValues(auth.ErrNotAdministrator.Error()).Inc()
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Status: http.StatusForbidden,
			Title:  "Forbidden",
			Detail: "Administrator privileges required",
		})
	}
}
