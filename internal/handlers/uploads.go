package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"technexus/internal/middleware"
	"technexus/internal/models"
	"technexus/internal/storage"
)

// UploadThumbnail handles POST /api/uploads/thumbnail with a multipart
// "file" field and returns the public URL of the stored image.
func (a *API) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	if a.storage == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "uploads_disabled", "Thumbnail uploads are not configured.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxThumbnailSize+64<<10)
	if err := r.ParseMultipartForm(storage.MaxThumbnailSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, models.Invalid("file", fmt.Sprintf("file exceeds the %d MB limit", storage.MaxThumbnailSize>>20)))
			return
		}
		writeError(w, r, models.Invalid("file", "expected a multipart upload"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, models.Invalid("file", "file is required"))
		return
	}
	defer file.Close()

	owner := middleware.IdentityFromCtx(r.Context())
	url, err := a.storage.UploadThumbnail(r.Context(), owner.ID, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
