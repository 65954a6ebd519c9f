package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cicconee/nugulmap/internal/app"
	"github.com/cicconee/nugulmap/internal/auth"
	"github.com/cicconee/nugulmap/internal/explorer"
	"github.com/cicconee/nugulmap/internal/geometry"
	"github.com/cicconee/nugulmap/internal/nugul"
	"github.com/go-chi/chi/v5"
)

// maxUploadMemory is how much of a zone upload is kept in memory
// before spilling to temporary files.
const maxUploadMemory = 10 << 20

// ZoneService is the part of the NugulMap API the handlers call
// directly. *nugul.Client implements it.
type ZoneService interface {
	SearchZones(ctx context.Context, keyword string, near geometry.Point) []nugul.Zone
	FetchMyZones(ctx context.Context, token string) []nugul.Zone
	FetchZone(ctx context.Context, id int) *nugul.Zone
	CreateZone(ctx context.Context, payload nugul.CreateZonePayload, image *nugul.Upload, token string) (nugul.Zone, error)
	DeleteZone(ctx context.Context, id int, token string) error
	ImageURL(name string) string
}

type Handler struct {
	logger   *slog.Logger
	zones    ZoneService
	explorer *explorer.Explorer
	session  *auth.Session
}

func NewHandler(l *slog.Logger, zones ZoneService, e *explorer.Explorer, s *auth.Session) *Handler {
	return &Handler{
		logger:   l,
		zones:    zones,
		explorer: e,
		session:  s,
	}
}

func (h *Handler) NewLogWriter(w http.ResponseWriter, r *http.Request) *LogWriter {
	return NewLogWriter(loggerFrom(r.Context(), h.logger), w, r)
}

func (h *Handler) HandleGetZones() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.NewLogWriter(w, r).Write(Response{
			Status: http.StatusOK,
			Body:   h.explorer.Snapshot(),
		})
	}
}

// HandlePostRegion reports a settled viewport. The fetch it may
// trigger happens after the response, so the snapshot returned still
// holds the previous zones.
func (h *Handler) HandlePostRegion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		var region geometry.Region
		if err := json.NewDecoder(r.Body).Decode(&region); err != nil {
			writer.WriteError(app.BadRequest(fmt.Errorf("decoding region: %w", err), "Invalid region"))
			return
		}

		if err := validRegion(region); err != nil {
			writer.WriteError(app.BadRequest(err, "Invalid region"))
			return
		}

		h.explorer.HandleRegionChangeComplete(region)

		writer.Write(Response{
			Status: http.StatusAccepted,
			Body:   h.explorer.Snapshot(),
		})
	}
}

func (h *Handler) HandleRefreshRegion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.explorer.RefreshCurrentRegion(r.Context())

		h.NewLogWriter(w, r).Write(Response{
			Status: http.StatusOK,
			Body:   h.explorer.Snapshot(),
		})
	}
}

func (h *Handler) HandleSearchZones() http.HandlerFunc {
	type res struct {
		Keyword string         `json:"keyword"`
		Zones   []nugul.Zone   `json:"zones"`
		Near    geometry.Point `json:"near,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)
		q := r.URL.Query()

		near, err := ParseOptionalPoint(q.Get("lng"), q.Get("lat"))
		if err != nil {
			writer.WriteError(err)
			return
		}

		keyword := strings.TrimSpace(q.Get("keyword"))
		writer.Write(Response{
			Status: http.StatusOK,
			Body: res{
				Keyword: keyword,
				Zones:   h.zones.SearchZones(r.Context(), keyword, near),
				Near:    near,
			},
		})
	}
}

func (h *Handler) HandleGetMyZones() http.HandlerFunc {
	type res struct {
		Zones []nugul.Zone `json:"zones"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h.NewLogWriter(w, r).Write(Response{
			Status: http.StatusOK,
			Body:   res{Zones: h.zones.FetchMyZones(r.Context(), tokenFrom(r.Context()))},
		})
	}
}

func (h *Handler) HandleGetZone() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		zone, err := h.lookupZone(r)
		if err != nil {
			writer.WriteError(err)
			return
		}

		writer.Write(Response{
			Status: http.StatusOK,
			Body:   h.view(zone),
		})
	}
}

// HandleCreateZone forwards a multipart zone report. The request
// carries the zone as JSON in the data field and an optional image
// file in the image field, the same layout the API expects.
func (h *Handler) HandleCreateZone() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		payload, image, err := parseZoneForm(r)
		if err != nil {
			writer.WriteError(err)
			return
		}
		if image != nil {
			defer image.close()
		}

		var upload *nugul.Upload
		if image != nil {
			upload = &image.Upload
		}

		zone, err := h.zones.CreateZone(r.Context(), payload, upload, tokenFrom(r.Context()))
		if err != nil {
			writer.WriteError(app.APIError(fmt.Errorf("creating zone: %w", err)))
			return
		}

		h.explorer.PrependZone(zone)
		h.explorer.Refresh()

		writer.Write(Response{
			Status: http.StatusCreated,
			Body:   h.view(zone),
		})
	}
}

func (h *Handler) HandleDeleteZone() http.HandlerFunc {
	type res struct {
		ID      int  `json:"id"`
		Deleted bool `json:"deleted"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		id, err := ParseID(chi.URLParam(r, "id"))
		if err != nil {
			writer.WriteError(err)
			return
		}

		if err := h.zones.DeleteZone(r.Context(), id, tokenFrom(r.Context())); err != nil {
			writer.WriteError(app.APIError(fmt.Errorf("deleting zone (id=%d): %w", id, err)))
			return
		}

		h.explorer.RemoveZone(id)

		writer.Write(Response{
			Status: http.StatusOK,
			Body:   res{ID: id, Deleted: true},
		})
	}
}

func (h *Handler) HandleGetFavorites() http.HandlerFunc {
	type res struct {
		IDs   []int        `json:"ids"`
		Zones []nugul.Zone `json:"zones"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h.NewLogWriter(w, r).Write(Response{
			Status: http.StatusOK,
			Body: res{
				IDs:   h.explorer.Snapshot().FavoriteIDs,
				Zones: h.explorer.FavoriteZones(),
			},
		})
	}
}

func (h *Handler) HandleToggleFavorite() http.HandlerFunc {
	type res struct {
		ID       int  `json:"id"`
		Favorite bool `json:"favorite"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		id, err := ParseID(chi.URLParam(r, "id"))
		if err != nil {
			writer.WriteError(err)
			return
		}

		writer.Write(Response{
			Status: http.StatusOK,
			Body:   res{ID: id, Favorite: h.explorer.ToggleFavorite(id)},
		})
	}
}

func (h *Handler) HandleOpenDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		zone, err := h.lookupZone(r)
		if err != nil {
			writer.WriteError(err)
			return
		}

		h.explorer.OpenDetail(zone)

		writer.Write(Response{
			Status: http.StatusOK,
			Body:   h.view(zone),
		})
	}
}

func (h *Handler) HandleCloseDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.explorer.CloseDetail()

		h.NewLogWriter(w, r).Write(Response{
			Status: http.StatusOK,
			Body:   h.explorer.Snapshot(),
		})
	}
}

// lookupZone finds the zone named by the id path parameter in the
// loaded list first and asks the API otherwise.
func (h *Handler) lookupZone(r *http.Request) (nugul.Zone, error) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		return nugul.Zone{}, err
	}

	if zone, ok := h.explorer.Zone(id); ok {
		return zone, nil
	}

	zone := h.zones.FetchZone(r.Context(), id)
	if zone == nil {
		return nugul.Zone{}, app.NotFound(fmt.Errorf("zone %d not found", id), app.MsgZoneNotFound)
	}

	return *zone, nil
}

func validRegion(r geometry.Region) error {
	switch {
	case r.Latitude < -90 || r.Latitude > 90:
		return fmt.Errorf("latitude out of range: %v", r.Latitude)
	case r.Longitude < -180 || r.Longitude > 180:
		return fmt.Errorf("longitude out of range: %v", r.Longitude)
	case r.LatitudeDelta <= 0 || r.LongitudeDelta <= 0:
		return errors.New("region deltas must be positive")
	}

	return nil
}
