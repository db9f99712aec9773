package imagehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookcourier/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadReturnsDisplayURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "img-key", r.URL.Query().Get("key"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cover.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://i.test/raw.png","display_url":"https://i.test/cover.png"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "img-key")
	link, err := c.Upload(context.Background(), "cover.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "https://i.test/cover.png", link)
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad").Upload(context.Background(), "a.png", strings.NewReader("x"))
	assert.True(t, apperr.IsStatus(err))
	assert.Equal(t, "Invalid API key", apperr.Message(err))
}

func TestUploadMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Upload(context.Background(), "a.png", strings.NewReader("x"))
	assert.True(t, apperr.IsDecode(err))
}
