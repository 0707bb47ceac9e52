// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/storelocator/geocoding"
)

// geocode is the proxy in front of the upstream provider. The API key never
// leaves the server.
func (s *Server) geocode(ctx *gin.Context) {
	var req geocoding.ProxyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, geocoding.ProxyResponse{Error: "richiesta non valida"})

		return
	}

	if strings.TrimSpace(req.Address) == "" {
		ctx.JSON(http.StatusBadRequest, geocoding.ProxyResponse{Error: "indirizzo obbligatorio"})

		return
	}

	if s.upstream == nil {
		ctx.JSON(http.StatusServiceUnavailable, geocoding.ProxyResponse{Error: "geocodifica non configurata"})

		return
	}

	callCtx, cancel := context.WithTimeout(ctx.Request.Context(), s.opts.CallTimeout)
	defer cancel()

	res, err := s.upstream.Geocode(callCtx, geocoding.Address{
		Street:   req.Address,
		City:     req.City,
		Province: req.Province,
	})
	if err != nil {
		ctx.JSON(geocoding.StatusCode(err), geocoding.ProxyResponse{Error: geocoding.Reason(err)})

		return
	}

	lat, lng := res.Latitude, res.Longitude

	ctx.JSON(http.StatusOK, geocoding.ProxyResponse{
		Lat:              &lat,
		Lng:              &lng,
		FormattedAddress: res.FormattedAddress,
	})
}
