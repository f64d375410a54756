package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/validate", r.URL.Path)
		assert.Equal(t, "Bearer svc", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["access_token"] != "good" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(ValidateResponse{UserID: "u1", DeviceID: body["device_id"], Roles: []string{"member"}})
	}))
	defer srv.Close()

	client := NewAuthServiceClient(srv.URL+"/", "svc")

	resp, err := client.ValidateToken(context.Background(), "good", "phone")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "phone", resp.DeviceID)

	_, err = client.ValidateToken(context.Background(), "bad", "phone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
