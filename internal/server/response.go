package server

import (
	"github.com/cicconee/nugulmap/internal/nugul"
)

type Response struct {
	Status int
	Body   any
}

type ErrorResponse struct {
	Status   int    `json:"-"`
	ErrorMsg string `json:"error_msg"`
}

func (e *ErrorResponse) AsResponse() Response {
	return Response{
		Status: e.Status,
		Body:   e,
	}
}

// zoneView is a zone with its image resolved to a fetchable URL.
type zoneView struct {
	nugul.Zone
	ImageURL string `json:"imageUrl,omitempty"`
}

func (h *Handler) view(z nugul.Zone) zoneView {
	v := zoneView{Zone: z}
	if z.Image != nil {
		v.ImageURL = h.zones.ImageURL(*z.Image)
	}

	return v
}
