package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core/class"
)

func Test_classApi_create(t *testing.T) {
	server, env := setup(t)
	token := getToken(t, env.conf)

	tests := []httpTest{
		{
			name: "requires auth", method: http.MethodPost, path: "/v1/classes",
			body:     marchallObj(t, class.NewSession{Name: "Fundamentals", Weekday: 1, StartMinute: 1080, EndMinute: 1140, InstructorName: "Prof. Maalim"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "end before start", method: http.MethodPost, path: "/v1/classes", token: token,
			body:     marchallObj(t, class.NewSession{Name: "Fundamentals", Weekday: 1, StartMinute: 1080, EndMinute: 900, InstructorName: "Prof. Maalim"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "weekday out of range", method: http.MethodPost, path: "/v1/classes", token: token,
			body:     marchallObj(t, class.NewSession{Name: "Fundamentals", Weekday: 7, StartMinute: 1080, EndMinute: 1140, InstructorName: "Prof. Maalim"}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			if tt.token != "" {
				req, rec = newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			}
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("creates", func(t *testing.T) {
		body := marchallObj(t, class.NewSession{Name: "Fundamentals", Weekday: 1, StartMinute: 1080, EndMinute: 1140, Capacity: 20, InstructorName: "Prof. Maalim"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token, body)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var sess class.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, time.Monday, sess.Weekday)
		assert.Equal(t, 20, sess.Capacity)
	})
}

func Test_classApi_query(t *testing.T) {
	server, env := setup(t)
	token := getToken(t, env.conf)

	today := createClassNow(t, env, "Today Class")

	// a class on another weekday stays out of /classes/today
	otherDay := (int(time.Now().Weekday()) + 3) % 7
	_, err := env.clsSvc.Create(context.Background(), class.NewSession{
		Name: "Other Day", Weekday: otherDay, StartMinute: 600, EndMinute: 660, InstructorName: "Prof. Maalim",
	})
	require.NoError(t, err)

	t.Run("all classes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes", token)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var sessions []class.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
		assert.Len(t, sessions, 2)
	})

	t.Run("today only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/today", token)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var sessions []class.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
		require.Len(t, sessions, 1)
		assert.Equal(t, today.ID, sessions[0].ID)
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+today.ID, token)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/nope", token)
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_classApi_reservations(t *testing.T) {
	server, env := setup(t)
	token := getToken(t, env.conf)

	std := createStudent(t, env, "Asha Juma", true)
	sess := createClassNow(t, env, "Fundamentals")

	t.Run("reserve", func(t *testing.T) {
		body := []byte(`{"student_id":"` + std.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+sess.ID+"/reservations", token, body)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var res class.Reservation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, class.ReservationReserved, res.Status)
	})

	t.Run("student id is required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+sess.ID+"/reservations", token, []byte(`{}`))
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown class is a 404", func(t *testing.T) {
		body := []byte(`{"student_id":"` + std.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/nope/reservations", token, body)
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cancel", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+sess.ID+"/reservations/"+std.ID, token)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+sess.ID+"/roster", token)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		assert.Empty(t, entries)
	})
}
