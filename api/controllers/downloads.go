package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LLTIGER/pulse-architects-sub001/api/middleware"
	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	"github.com/LLTIGER/pulse-architects-sub001/api/validators"
	"github.com/LLTIGER/pulse-architects-sub001/internal/downloads"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/storage/gcs"
)

// ObjectOpener streams stored plan files.
type ObjectOpener interface {
	OpenObject(ctx context.Context, object string) (*gcs.Object, error)
}

// AssetDownload gates and streams one asset file. A missing tier query
// parameter means the public preview.
func AssetDownload(svc downloads.Service, objects ObjectOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || objects == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "download service unavailable"))
			return
		}

		assetID, err := validators.ParseUUID(chi.URLParam(r, "assetId"), "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier, err := validators.QueryString(r, "tier", enums.LicenseTierPreview.String(), 32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req := downloads.Request{AssetID: assetID, Tier: tier, IP: middleware.ClientIP(r)}
		if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
			userID := identity.UserID
			req.UserID = &userID
		}

		decision, err := svc.Authorize(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		obj, err := objects.OpenObject(r.Context(), decision.Asset.StorageObject)
		if err != nil {
			svc.Abandon(r.Context(), decision, err)
			if errors.Is(err, gcs.ErrObjectNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "asset file not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open asset file"))
			return
		}
		defer func() { _ = obj.Body.Close() }()

		// the download is spent only once the file is ready to stream
		if err := svc.Commit(r.Context(), decision); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contentType := obj.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+decision.Filename+`"`)
		w.Header().Set("Cache-Control", "private, no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if obj.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, obj.Body); err != nil && logg != nil {
			logg.Error(logg.WithField(r.Context(), "asset_id", assetID.String()), "download.stream_failed", err)
		}
	}
}
