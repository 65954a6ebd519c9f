package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cicconee/nugulmap/internal/app"
	"github.com/cicconee/nugulmap/internal/nugul"
)

type uploadedFile struct {
	nugul.Upload
	file multipart.File
}

func (u *uploadedFile) close() {
	u.file.Close()
}

// parseZoneForm reads the data and image fields of a zone report.
// The returned file, when not nil, must be closed by the caller.
func parseZoneForm(r *http.Request) (nugul.CreateZonePayload, *uploadedFile, error) {
	var payload nugul.CreateZonePayload

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return payload, nil, app.BadRequest(fmt.Errorf("parsing multipart form: %w", err), "Invalid form")
	}

	data := r.FormValue("data")
	if data == "" {
		return payload, nil, app.BadRequest(errors.New("missing data field"), "Missing zone data")
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return payload, nil, app.BadRequest(fmt.Errorf("decoding zone data: %w", err), "Invalid zone data")
	}
	if err := validPayload(payload); err != nil {
		return payload, nil, app.BadRequest(err, "Invalid zone data")
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return payload, nil, nil
	}
	if err != nil {
		return payload, nil, app.BadRequest(fmt.Errorf("reading image: %w", err), "Invalid image")
	}

	return payload, &uploadedFile{
		Upload: nugul.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        file,
		},
		file: file,
	}, nil
}

func validPayload(p nugul.CreateZonePayload) error {
	switch {
	case strings.TrimSpace(p.Address) == "":
		return errors.New("address is required")
	case p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("latitude out of range: %v", p.Latitude)
	case p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("longitude out of range: %v", p.Longitude)
	}

	return nil
}
