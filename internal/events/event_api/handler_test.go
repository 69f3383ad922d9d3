package event_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/config"
	"ms-events/internal/events"
	eventdb "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

func setupRouter(t *testing.T) (*chi.Mux, *eventdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	for _, model := range []interface{}{
		(*models.Venue)(nil),
		(*models.Source)(nil),
		(*models.Event)(nil),
		(*models.Tag)(nil),
		(*models.EventTag)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		require.NoError(t, err)
	}

	storeDB := &eventdb.DB{Bun: bunDB}
	cfg := &config.Config{
		Events: config.EventsConfig{
			Timezone:         time.UTC,
			DefaultURLScheme: "http://",
			PublicBaseURL:    "http://events.local",
		},
	}
	service := events.NewEventService(storeDB, time.UTC, "http://")
	handler := event_api.NewHandler(service, cfg, nil)

	r := chi.NewRouter()
	r.Route("/event", func(r chi.Router) {
		r.Post("/", handler.ImportEvent)
		r.Get("/{eventID}", handler.GetEvent)
		r.Get("/{eventID}/qr", handler.ShareQR)
		r.Put("/{eventID}", handler.UpdateEvent)
		r.Delete("/{eventID}", handler.DeleteEvent)
		r.Post("/{eventID}/squash/{canonicalID}", handler.SquashEvent)
		r.Post("/{eventID}/lock", handler.LockEvent)
		r.Post("/{eventID}/unlock", handler.UnlockEvent)
	})
	r.Get("/events", handler.ListEvents)

	return r, storeDB, bunDB
}

func importBody(t *testing.T, startTime string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"title":       "Town Hall",
		"description": "Monthly community meeting",
		"url":         "example.com/town-hall",
		"start_time":  startTime,
		"end_time":    "",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 14).Format("2006-01-02") + " 19:00"
}

func TestImportEventEndpoint(t *testing.T) {
	router, _, bunDB := setupRouter(t)
	defer bunDB.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/event/", importBody(t, futureDate()))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Town Hall", data["Title"])
	assert.Equal(t, "http://example.com/town-hall", data["URL"])
}

func TestImportEventEndpointValidation(t *testing.T) {
	router, _, bunDB := setupRouter(t)
	defer bunDB.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/event/", importBody(t, "not-a-time"))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)

	fieldErrors := resp.Errors.(map[string]interface{})
	assert.Contains(t, fieldErrors, "start_time")
}

func TestImportDuplicateGetsSquashed(t *testing.T) {
	router, _, bunDB := setupRouter(t)
	defer bunDB.Close()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/event/", importBody(t, futureDate())))
	require.Equal(t, http.StatusCreated, first.Code)
	firstData := decodeResponse(t, first).Data.(map[string]interface{})

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/event/", importBody(t, futureDate())))
	require.Equal(t, http.StatusCreated, second.Code)
	secondData := decodeResponse(t, second).Data.(map[string]interface{})

	assert.Equal(t, firstData["ID"], secondData["DuplicateOfID"])
}

func TestSquashEndpointSelfRejected(t *testing.T) {
	router, storeDB, bunDB := setupRouter(t)
	defer bunDB.Close()

	event := models.Event{Title: "Town Hall", StartTime: time.Now().AddDate(0, 0, 7)}
	require.NoError(t, storeDB.CreateEvent(&event))

	rec := httptest.NewRecorder()
	url := fmt.Sprintf("/event/%s/squash/%s", event.ID, event.ID)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url, nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLockedEventRejectsUpdate(t *testing.T) {
	router, storeDB, bunDB := setupRouter(t)
	defer bunDB.Close()

	event := models.Event{Title: "Town Hall", StartTime: time.Now().AddDate(0, 0, 7)}
	require.NoError(t, storeDB.CreateEvent(&event))

	lockRec := httptest.NewRecorder()
	router.ServeHTTP(lockRec, httptest.NewRequest(http.MethodPost, "/event/"+event.ID+"/lock", nil))
	require.Equal(t, http.StatusOK, lockRec.Code)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/event/"+event.ID, importBody(t, futureDate()))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusLocked, rec.Code)

	unlockRec := httptest.NewRecorder()
	router.ServeHTTP(unlockRec, httptest.NewRequest(http.MethodPost, "/event/"+event.ID+"/unlock", nil))
	require.Equal(t, http.StatusOK, unlockRec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/event/"+event.ID, importBody(t, futureDate()))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShareQREndpoint(t *testing.T) {
	router, storeDB, bunDB := setupRouter(t)
	defer bunDB.Close()

	event := models.Event{Title: "Town Hall", StartTime: time.Now().AddDate(0, 0, 7)}
	require.NoError(t, storeDB.CreateEvent(&event))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/event/"+event.ID+"/qr", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestListEventsWindow(t *testing.T) {
	router, storeDB, bunDB := setupRouter(t)
	defer bunDB.Close()

	inside := models.Event{Title: "Inside", StartTime: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)}
	outside := models.Event{Title: "Outside", StartTime: time.Date(2024, 4, 1, 19, 0, 0, 0, time.UTC)}
	require.NoError(t, storeDB.CreateEvent(&inside))
	require.NoError(t, storeDB.CreateEvent(&outside))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?start=2024-03-01&end=2024-03-08", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	eventList := resp.Data.([]interface{})
	require.Len(t, eventList, 1)
	assert.Equal(t, "Inside", eventList[0].(map[string]interface{})["Title"])
}
