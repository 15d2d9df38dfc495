package imaging

import (
	"errors"
	"fmt"
	"net/http"
)

// formOverhead is the room left for the other form fields when parsing a
// multipart upload.
const formOverhead = 1 << 20

// FromRequest reads and processes the photo uploaded in the multipart field
// named field. It returns nil without error when no file was sent.
func FromRequest(w http.ResponseWriter, r *http.Request, field string, opts Options) (*Photo, error) {
	opts = opts.withDefaults()

	r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes+formOverhead)
	if err := r.ParseMultipartForm(opts.MaxBytes + formOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s upload: %w", field, err)
	}
	defer file.Close()

	if header.Size == 0 {
		return nil, nil
	}
	if header.Size > opts.MaxBytes {
		return nil, ErrTooLarge
	}

	return Process(file, opts)
}
