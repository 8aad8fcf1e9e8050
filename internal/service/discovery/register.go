package discovery

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/repository"
	"github.com/venturematch/venture-match/internal/scoring"
	"github.com/venturematch/venture-match/internal/server"
)

// Registrar ties the discovery service into the HTTP router.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext, scorer scoring.Scorer) *Registrar {
	return &Registrar{service: NewService(appCtx, scorer)}
}

// Mount attaches the discovery endpoints. The invalidation route is for the
// profile service, not end clients; keep it off any public ingress.
func (reg *Registrar) Mount(r chi.Router) {
	r.Get("/feed/discover", reg.handleDiscover)
	r.Post("/internal/candidates/{id}/invalidate", reg.handleInvalidateCandidate)
}

func (reg *Registrar) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	viewerID, err := parseID(q.Get("profile_id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}

	req := Request{
		ViewerID: viewerID,
		Cursor:   q.Get("cursor"),
		Filters: repository.Filters{
			Stages:   multiValue(q, "stages"),
			Sectors:  multiValue(q, "sectors"),
			Location: q.Get("location"),
		},
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			server.RespondError(w, apperrors.InvalidArgument("limit must be a non-negative integer"))
			return
		}
		req.Limit = limit
	}

	if req.Filters.MinCheckSize, err = optionalUint(q.Get("min_check_size"), "min_check_size"); err != nil {
		server.RespondError(w, err)
		return
	}
	if req.Filters.MaxCheckSize, err = optionalUint(q.Get("max_check_size"), "max_check_size"); err != nil {
		server.RespondError(w, err)
		return
	}

	page, err := reg.service.Discover(r.Context(), req)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, page)
}

func (reg *Registrar) handleInvalidateCandidate(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		server.RespondError(w, apperrors.InvalidArgument("id must be a valid profile id"))
		return
	}
	if err := reg.service.InvalidateCandidate(r.Context(), id); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func parseID(raw string) (uint64, error) {
	if raw == "" {
		return 0, apperrors.InvalidArgument("profile_id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidArgument("profile_id must be a valid id")
	}
	return id, nil
}

// multiValue accepts both repeated params (?stages=a&stages=b) and the
// bracketed form (?stages[]=a&stages[]=b).
func multiValue(q url.Values, key string) []string {
	vals := append([]string(nil), q[key]...)
	vals = append(vals, q[key+"[]"]...)
	out := vals[:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func optionalUint(raw, name string) (*uint64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperrors.InvalidArgument(name + " must be a non-negative integer")
	}
	return &v, nil
}
