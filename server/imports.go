// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/storelocator/geocoding"
	"github.com/jcodagnone/storelocator/importer"
)

const maxUploadBytes = 5 << 20

type rowView struct {
	*importer.Row
	Index int    `json:"index"`
	Label string `json:"label"`
}

type importView struct {
	ID      string                 `json:"id"`
	Rows    []rowView              `json:"rows"`
	Skipped []importer.SkippedLine `json:"skipped,omitempty"`
	Running bool                   `json:"running"`
	Summary *importer.Summary      `json:"summary,omitempty"`
}

func viewOf(snap importer.Snapshot) importView {
	v := importView{
		ID:      snap.ID,
		Rows:    make([]rowView, len(snap.Rows)),
		Skipped: snap.Skipped,
		Running: snap.Running,
		Summary: snap.Summary,
	}

	for i, r := range snap.Rows {
		v.Rows[i] = rowView{Row: r, Index: i, Label: importer.Label(r)}
	}

	return v
}

// upload returns the CSV body of the request: the "file" part of a
// multipart form, or the raw body.
func upload(ctx *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fh, err := ctx.FormFile("file")
		if err != nil {
			return nil, err
		}

		return fh.Open()
	}

	return http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxUploadBytes), nil
}

func (s *Server) createImport(ctx *gin.Context) {
	body, err := upload(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}
	defer body.Close()

	runner := importer.NewRunner(s.importGeocoder)
	runner.Delay = s.opts.GeocodeDelay
	runner.CallTimeout = s.opts.CallTimeout

	session := importer.NewSession(runner, &importer.Submitter{Store: s.repo})
	session.OwnerID = currentUser(ctx).ID

	if _, err := session.Load(body); err != nil {
		var missing *importer.MissingColumnsError

		switch {
		case errors.As(err, &missing):
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   err.Error(),
				"code":    "missing_columns",
				"missing": missing.Missing,
			})
		case errors.Is(err, importer.ErrEmptyImport):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "empty_import"})
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}

		return
	}

	s.sessions.Add(session)

	ctx.JSON(http.StatusCreated, viewOf(session.Snapshot()))
}

// session looks up the import named in the path and checks it belongs to the
// caller. On failure the response is already written.
func (s *Server) session(ctx *gin.Context) (*importer.Session, bool) {
	session, ok := s.sessions.Get(ctx.Param("id"))
	if !ok || session.OwnerID != currentUser(ctx).ID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "importazione non trovata"})

		return nil, false
	}

	return session, true
}

func (s *Server) getImport(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, viewOf(session.Snapshot()))
}

// geocodeImport runs the pass within the request; a client going away
// cancels it and leaves the remaining rows pending.
func (s *Server) geocodeImport(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	if s.importGeocoder == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocodifica non configurata"})

		return
	}

	summary, err := session.Geocode(ctx.Request.Context(), nil)

	switch {
	case errors.Is(err, importer.ErrBusy):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, importer.ErrUpstreamStopped):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   importer.ErrUpstreamStopped.Error() + ": " + geocoding.Reason(err),
			"summary": summary,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ctx.JSON(http.StatusRequestTimeout, gin.H{"error": "geocodifica interrotta", "summary": summary})
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusOK, gin.H{
			"summary": summary,
			"message": summary.String() + " indirizzi geocodificati",
			"import":  viewOf(session.Snapshot()),
		})
	}
}

func (s *Server) retryRow(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "indice di riga non valido"})

		return
	}

	var edit importer.RowEdit
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&edit); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	}

	row, err := session.RetryRow(ctx.Request.Context(), index, &edit)

	switch {
	case errors.Is(err, importer.ErrRowIndex):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, importer.ErrBusy):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, importer.ErrUpstreamStopped):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": importer.ErrUpstreamStopped.Error() + ": " + geocoding.Reason(err)})
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusOK, rowView{Row: row, Index: index, Label: importer.Label(row)})
	}
}

func (s *Server) submitImport(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	business, err := s.resolver.Resolve(ctx.Request.Context(), currentUser(ctx))
	if err != nil {
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

		return
	}

	n, err := session.Submit(ctx.Request.Context(), business.ID)

	var perr *importer.PersistenceError

	switch {
	case errors.Is(err, importer.ErrBusy):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, importer.ErrNothingToSubmit):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "nothing_to_submit"})
	case errors.As(err, &perr):
		ctx.JSON(http.StatusBadGateway, gin.H{"error": perr.Error()})
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		s.sessions.Delete(session.ID)
		ctx.JSON(http.StatusOK, gin.H{"stored": n, "business_id": business.ID})
	}
}

func (s *Server) deleteImport(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	session.Reset()
	s.sessions.Delete(session.ID)

	ctx.Status(http.StatusNoContent)
}
