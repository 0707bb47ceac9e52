// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/storelocator/auth"
	"github.com/jcodagnone/storelocator/store"
)

const userKey = "user"

type credentials struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type tokenResponse struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

func (s *Server) register(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if _, err := s.repo.FindUserByEmail(ctx.Request.Context(), req.Email); err == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "email già registrata"})

		return
	} else if !errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	hash, err := auth.HashPassword(req.Password, s.opts.BcryptCost)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	u := &store.User{Email: req.Email, PasswordHash: hash}
	if err := s.repo.CreateUser(ctx.Request.Context(), u); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	s.issue(ctx, http.StatusCreated, auth.User{ID: u.ID, Email: u.Email})
}

func (s *Server) signIn(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	u, err := s.repo.FindUserByEmail(ctx.Request.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	s.issue(ctx, http.StatusOK, auth.User{ID: u.ID, Email: u.Email})
}

func (s *Server) issue(ctx *gin.Context, status int, u auth.User) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	s.provider.Publish(ctx.Request.Context(), auth.Event{Kind: auth.SignedIn, User: u})

	ctx.JSON(status, tokenResponse{Token: token, User: u})
}

// requireUser rejects requests without a valid bearer token.
func (s *Server) requireUser(ctx *gin.Context) {
	parts := strings.Fields(ctx.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "autenticazione richiesta"})

		return
	}

	claims, err := s.tokens.Verify(parts[1])
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	ctx.Set(userKey, claims.User())
	ctx.Next()
}

func currentUser(ctx *gin.Context) auth.User {
	u, _ := ctx.Get(userKey)
	user, _ := u.(auth.User)

	return user
}
