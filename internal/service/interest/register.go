package interest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/db"
	"github.com/venturematch/venture-match/internal/server"
)

// Registrar ties the interest service into the HTTP router.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext, preview PreviewSource) *Registrar {
	return &Registrar{service: NewService(appCtx, preview)}
}

// Mount attaches the like, pass, limit, and match endpoints.
func (reg *Registrar) Mount(r chi.Router) {
	r.Post("/matches/likes", reg.handleLike)
	r.Post("/matches/pass", reg.handlePass)
	r.Get("/matches/limits", reg.handleLimits)
	r.Get("/matches", reg.handleList)
}

type likeBody struct {
	SenderID    uint64  `json:"sender_id"`
	RecipientID uint64  `json:"recipient_id"`
	Tier        string  `json:"tier"`
	PromptID    *uint64 `json:"prompt_id"`
	Note        string  `json:"note"`
}

func (reg *Registrar) handleLike(w http.ResponseWriter, r *http.Request) {
	var body likeBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.RespondError(w, apperrors.InvalidArgument("invalid request body"))
		return
	}
	if body.SenderID == 0 || body.RecipientID == 0 {
		server.RespondError(w, apperrors.InvalidArgument("sender_id and recipient_id are required"))
		return
	}

	tier := db.TierStandard
	if body.Tier != "" {
		parsed, ok := db.ParseTier(body.Tier)
		if !ok {
			server.RespondError(w, apperrors.InvalidArgument("tier must be one of standard, rose, superlike"))
			return
		}
		tier = parsed
	}

	result, err := reg.service.RecordLike(r.Context(), LikeRequest{
		SenderID:    body.SenderID,
		RecipientID: body.RecipientID,
		Tier:        tier,
		PromptID:    body.PromptID,
		Note:        body.Note,
	})
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, result)
}

type passBody struct {
	UserID          uint64 `json:"user_id"`
	PassedProfileID uint64 `json:"passed_profile_id"`
}

func (reg *Registrar) handlePass(w http.ResponseWriter, r *http.Request) {
	var body passBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.RespondError(w, apperrors.InvalidArgument("invalid request body"))
		return
	}
	if body.UserID == 0 || body.PassedProfileID == 0 {
		server.RespondError(w, apperrors.InvalidArgument("user_id and passed_profile_id are required"))
		return
	}

	if err := reg.service.RecordPass(r.Context(), body.UserID, body.PassedProfileID); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (reg *Registrar) handleLimits(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}

	limits, err := reg.service.GetLimits(r.Context(), profileID)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, limits)
}

func (reg *Registrar) handleList(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}

	items, err := reg.service.ListMatches(r.Context(), profileID)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]any{"matches": items})
}

func queryProfileID(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("profile_id")
	if raw == "" {
		return 0, apperrors.InvalidArgument("profile_id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidArgument("profile_id must be a valid id")
	}
	return id, nil
}
