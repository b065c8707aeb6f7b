package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/models"
	"roombook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// 2025-06-01 is a Sunday; 2025-06-02 is the next Monday.
var referenceNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

const (
	ownerKey = "owner-key"
	otherKey = "other-key"
	adminKey = "admin-key"
	extra    = "extra"
)

type apiEnv struct {
	db    *database.DB
	cfg   config.APIConfig
	svc   Services
	auth  *Authenticator
	room  *models.Room
	slot  *models.TimeSlot
	slot2 *models.TimeSlot
	owner *models.User
	other *models.User
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Name: "owner", Key: ownerKey, Extra: extra, UserEmail: "owner@school.test"},
				{Name: "other", Key: otherKey, Extra: extra, UserEmail: "other@school.test"},
				{Name: "admin", Key: adminKey, Extra: extra, UserEmail: "admin@school.test", Permissions: []string{"admin"}},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
	}
}

func newAPIEnv(t *testing.T, mutate ...func(*config.APIConfig)) *apiEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	env := &apiEnv{db: db, cfg: testAPIConfig()}
	for _, m := range mutate {
		m(&env.cfg)
	}

	env.room = &models.Room{Name: "Room 101", Capacity: 30}
	require.NoError(t, db.CreateRoom(ctx, env.room))
	env.slot = &models.TimeSlot{DayOfWeek: models.Monday, StartTime: models.MustTimeOfDay("09:00"), EndTime: models.MustTimeOfDay("10:00")}
	require.NoError(t, db.CreateTimeSlot(ctx, env.slot))
	env.slot2 = &models.TimeSlot{DayOfWeek: models.Monday, StartTime: models.MustTimeOfDay("10:00"), EndTime: models.MustTimeOfDay("11:00")}
	require.NoError(t, db.CreateTimeSlot(ctx, env.slot2))

	env.owner = &models.User{Email: "owner@school.test", Name: "Owner", Role: models.RoleProfessor}
	require.NoError(t, db.CreateUser(ctx, env.owner))
	env.other = &models.User{Email: "other@school.test", Name: "Other", Role: models.RoleProfessor}
	require.NoError(t, db.CreateUser(ctx, env.other))
	require.NoError(t, db.CreateUser(ctx, &models.User{Email: "admin@school.test", Name: "Admin", Role: models.RoleAdmin}))

	users := service.NewUserService(db, "", &logger)
	env.svc = Services{
		Booking: service.NewBookingService(db, nil, nil, service.NewFixedClock(referenceNow), time.UTC, &logger),
		Catalog: service.NewCatalogService(db, &logger),
		Users:   users,
		Checks:  map[string]func(context.Context) error{"database": db.PingContext},
	}
	env.auth = NewAuthenticator(env.cfg, users)
	return env
}

func (e *apiEnv) httpServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(e.cfg, e.svc, e.auth, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (e *apiEnv) reservationJSON(slot *models.TimeSlot, date string, attendees int) map[string]any {
	return map[string]any{
		"room_id":        e.room.ID,
		"slot_id":        slot.ID,
		"date":           date,
		"purpose":        "Lecture",
		"attendee_count": attendees,
	}
}

// doJSON sends body as JSON with the given API key and decodes the response
// into a map when there is one.
func doJSON(t *testing.T, method, url, apiKey string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("x-api-extra", extra)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func idOf(t *testing.T, body map[string]any) int64 {
	t.Helper()
	id, ok := body["id"].(float64)
	require.True(t, ok, "response has no id: %v", body)
	return int64(id)
}
