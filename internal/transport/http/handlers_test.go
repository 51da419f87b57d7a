package httptransport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	carservice "rescar/internal/carpool/service"
	carstore "rescar/internal/carpool/store"
	resservice "rescar/internal/reservation/service"
	resstore "rescar/internal/reservation/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	catalog := carstore.NewMemory()
	cars := carservice.New(catalog)
	reservations := resservice.New(resstore.NewMemory(catalog))
	logger := slog.New(slog.DiscardHandler)
	return NewRouter(NewHandler(cars, reservations, logger))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func addCar(t *testing.T, router http.Handler, carID string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/cars", map[string]any{
		"make":                "VW",
		"model":               "Golf",
		"car_id":              carID,
		"registration_number": "AB-123-C",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAddCarEndpoint(t *testing.T) {
	t.Run("creates a car", func(t *testing.T) {
		router := newTestRouter(t)
		rec := doJSON(t, router, http.MethodPost, "/cars", map[string]any{
			"make":                "VW",
			"model":               "Golf",
			"car_id":              "C25",
			"registration_number": "AB-123-C",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "C25", body["car_id"])
	})

	t.Run("rejects malformed car identifier", func(t *testing.T) {
		router := newTestRouter(t)
		rec := doJSON(t, router, http.MethodPost, "/cars", map[string]any{
			"make":                "VW",
			"model":               "Golf",
			"car_id":              "A-42",
			"registration_number": "AB-123-C",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects bad registration number shape", func(t *testing.T) {
		router := newTestRouter(t)
		for _, reg := range []string{"short1", "ABCDEFGH", "AB-123-CDE"} {
			rec := doJSON(t, router, http.MethodPost, "/cars", map[string]any{
				"make":                "VW",
				"model":               "Golf",
				"car_id":              "C25",
				"registration_number": reg,
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code, reg)
		}
	})

	t.Run("conflicting attributes map to 409", func(t *testing.T) {
		router := newTestRouter(t)
		addCar(t, router, "C25")

		rec := doJSON(t, router, http.MethodPost, "/cars", map[string]any{
			"make":                "VW",
			"model":               "Golf",
			"car_id":              "C25",
			"registration_number": "ZZ-999-Z",
		})
		require.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "inconsistent", body["error"])
		assert.Equal(t, "ZZ-999-Z", body["expected"])
		assert.Equal(t, "AB-123-C", body["found"])
	})
}

func TestListCarsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	addCar(t, router, "C2")
	addCar(t, router, "C1")

	rec := doJSON(t, router, http.MethodGet, "/cars?order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cars []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
	require.Len(t, cars, 2)
	assert.Equal(t, "C2", cars[0]["car_id"])

	rec = doJSON(t, router, http.MethodGet, "/cars?order=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCarEndpoint(t *testing.T) {
	t.Run("updates registration number", func(t *testing.T) {
		router := newTestRouter(t)
		addCar(t, router, "C25")

		rec := doJSON(t, router, http.MethodPatch, "/cars/C25", map[string]any{
			"registration_number": "ZZ-999-Z",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ZZ-999-Z", body["registration_number"])
	})

	t.Run("empty update is invalid", func(t *testing.T) {
		router := newTestRouter(t)
		addCar(t, router, "C25")

		rec := doJSON(t, router, http.MethodPatch, "/cars/C25", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown car is 404", func(t *testing.T) {
		router := newTestRouter(t)

		rec := doJSON(t, router, http.MethodPatch, "/cars/C77", map[string]any{
			"registration_number": "ZZ-999-Z",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteCarEndpoint(t *testing.T) {
	router := newTestRouter(t)
	addCar(t, router, "C25")

	rec := doJSON(t, router, http.MethodDelete, "/cars/C25", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "C25", snapshot["car_id"])

	rec = doJSON(t, router, http.MethodDelete, "/cars/C25", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMakeReservationEndpoint(t *testing.T) {
	t.Run("commits and returns a request id", func(t *testing.T) {
		router := newTestRouter(t)
		addCar(t, router, "C1")

		rec := doJSON(t, router, http.MethodPost, "/reservations", map[string]any{
			"to_rent_at":       "2026-09-01T10:00:00Z",
			"duration_minutes": 60,
			"client_name":      "alice",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		requestID, ok := body["request_id"].(string)
		require.True(t, ok)

		rec = doJSON(t, router, http.MethodGet, "/reservations/"+requestID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no car available is 409", func(t *testing.T) {
		router := newTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/reservations", map[string]any{
			"to_rent_at":       "2026-09-01T10:00:00Z",
			"duration_minutes": 60,
		})
		require.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "no_car_available", body["error"])
	})

	t.Run("validates the payload", func(t *testing.T) {
		router := newTestRouter(t)
		addCar(t, router, "C1")

		rec := doJSON(t, router, http.MethodPost, "/reservations", map[string]any{
			"duration_minutes": 60,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/reservations", map[string]any{
			"to_rent_at":       "2026-09-01T10:00:00Z",
			"duration_minutes": 0,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetReservationEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/reservations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/reservations/6cfb3794-0c97-4b33-ae13-6e194b4716c1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
