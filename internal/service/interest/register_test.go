package interest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturematch/venture-match/internal/service/interest"
)

func TestPassEndpointReportsSuccess(t *testing.T) {
	appCtx, _ := setupAppCtx(t)
	founder, investor := seedPair(t, appCtx.DB)

	r := chi.NewRouter()
	interest.NewRegistrar(appCtx, nil).Mount(r)

	body := fmt.Sprintf(`{"user_id":%d,"passed_profile_id":%d}`, founder.ID, investor.ID)
	req := httptest.NewRequest(http.MethodPost, "/matches/pass", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
}

func TestLikeEndpointReturns503WhenStoreIsDown(t *testing.T) {
	appCtx, _ := setupAppCtx(t)
	founder, investor := seedPair(t, appCtx.DB)

	r := chi.NewRouter()
	interest.NewRegistrar(appCtx, nil).Mount(r)

	sqlDB, err := appCtx.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	body := fmt.Sprintf(`{"sender_id":%d,"recipient_id":%d,"tier":"standard"}`, founder.ID, investor.ID)
	req := httptest.NewRequest(http.MethodPost, "/matches/likes", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp["code"])
}
