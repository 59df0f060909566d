// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VA7DBI/idguard/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func adminRouter(claims *auth.Claims, subjects []string, claim string) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	reached := 0
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(KeyClaims, claims)
		}
	})
	admin := RequireAdmin(subjects, claim, nil)
	handler := func(c *gin.Context) {
		reached++
		c.Status(http.StatusNoContent)
	}
	r.POST("/users", admin, handler)
	r.PATCH("/users/:uid", admin, handler)
	r.DELETE("/users/:uid", admin, handler)
	return r, &reached
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		status int
	}{
		{"ListedSubject", &auth.Claims{Subject: "ops-1"}, http.StatusNoContent},
		{"AdminClaim", &auth.Claims{Subject: "someone", Extra: map[string]any{"admin": true}}, http.StatusNoContent},
		{"AdminClaimFalse", &auth.Claims{Subject: "someone", Extra: map[string]any{"admin": false}}, http.StatusForbidden},
		{"AdminClaimNotBool", &auth.Claims{Subject: "someone", Extra: map[string]any{"admin": "true"}}, http.StatusForbidden},
		{"OrdinaryUser", &auth.Claims{Subject: "mallory"}, http.StatusForbidden},
		{"NoVerifiedIdentity", nil, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, reached := adminRouter(tc.claims, []string{"ops-1"}, "admin")

			for _, method := range []string{http.MethodPost, http.MethodPatch, http.MethodDelete} {
				target := "/users/victim"
				if method == http.MethodPost {
					target = "/users"
				}
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
				assert.Equal(t, tc.status, w.Code, method)
			}
			if tc.status == http.StatusNoContent {
				assert.Equal(t, 3, *reached)
			} else {
				assert.Zero(t, *reached)
			}
		})
	}
}

func TestRequireAdminWithoutClaimCheck(t *testing.T) {
	r, reached := adminRouter(&auth.Claims{Subject: "someone", Extra: map[string]any{"admin": true}}, nil, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/users/victim", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Administrator privileges required", decodeError(t, w).Detail)
	assert.Zero(t, *reached)
}
