// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/storelocator/spatial"
	"github.com/jcodagnone/storelocator/store"
)

const defaultRadiusKm = 10.0

type searchQuery struct {
	Lat      *float64 `form:"lat"       binding:"omitempty,latitude"`
	Lng      *float64 `form:"lng"       binding:"omitempty,longitude"`
	RadiusKm float64  `form:"radius_km" binding:"omitempty,gt=0,lte=500"`
	Brand    string   `form:"brand"`
}

// searchStores answers either a proximity search, when lat and lng are
// given, or a brand search.
func (s *Server) searchStores(ctx *gin.Context) {
	var q searchQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	q.Brand = strings.TrimSpace(q.Brand)

	switch {
	case q.Lat != nil && q.Lng != nil:
		if q.RadiusKm == 0 {
			q.RadiusKm = defaultRadiusKm
		}

		center := spatial.Point{Lat: *q.Lat, Lng: *q.Lng}

		matches, err := s.repo.SearchNearby(ctx.Request.Context(), center, q.RadiusKm, q.Brand)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		ctx.JSON(http.StatusOK, gin.H{"center": center, "radius_km": q.RadiusKm, "stores": matches})
	case q.Lat != nil || q.Lng != nil:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lat e lng vanno indicati insieme"})
	case q.Brand != "":
		records, err := s.repo.SearchBrand(ctx.Request.Context(), q.Brand)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		ctx.JSON(http.StatusOK, gin.H{"stores": records})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "indicare lat e lng oppure brand"})
	}
}

func (s *Server) listBusinessStores(ctx *gin.Context) {
	id := ctx.Param("id")

	business, err := s.repo.GetBusiness(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "attività non trovata"})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	records, err := s.repo.ListStores(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"business": business, "stores": records})
}

// deleteStore removes a store of the caller's business. Stores of other
// businesses answer 404 like missing ones.
func (s *Server) deleteStore(ctx *gin.Context) {
	business, err := s.resolver.Resolve(ctx.Request.Context(), currentUser(ctx))
	if err != nil {
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

		return
	}

	records, err := s.repo.ListStores(ctx.Request.Context(), business.ID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	id := ctx.Param("id")
	owned := slices.ContainsFunc(records, func(r *store.Record) bool { return r.ID == id })

	if !owned {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "negozio non trovato"})

		return
	}

	err = s.repo.DeleteStore(ctx.Request.Context(), id)

	switch {
	case errors.Is(err, store.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "negozio non trovato"})
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		ctx.Status(http.StatusNoContent)
	}
}
