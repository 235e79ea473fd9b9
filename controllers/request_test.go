package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FlexibleID
	}{
		{"string", `{"id": "42"}`, "42"},
		{"string with spaces", `{"id": " 42 "}`, "42"},
		{"integer", `{"id": 42}`, "42"},
		{"leading zeros kept in strings", `{"id": "007700"}`, "007700"},
		{"null", `{"id": null}`, ""},
		{"missing", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				ID FlexibleID `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			assert.Equal(t, tt.want, v.ID)
		})
	}
}

func TestFlexibleID_RejectsObjects(t *testing.T) {
	var v struct {
		ID FlexibleID `json:"id"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"id": {"x": 1}}`), &v))
}

func TestMovieIDFromRequest(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/", ""},
		{"/movie/42", "42"},
		{"/movie/42/", "42"},
		{"/?movie=17", "17"},
		{"/m/7?movie=17", "17"},
		{"/filme/abc?movie=17", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, MovieIDFromRequest(httptest.NewRequest("GET", tt.target, nil)))
		})
	}
}
