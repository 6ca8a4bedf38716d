package docparse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTextPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello resume\nsecond line"))
	}))
	defer srv.Close()

	text, pages, err := NewHTTPExtractor().ExtractText(context.Background(), srv.URL, "txt")
	require.NoError(t, err)
	require.Equal(t, "hello resume\nsecond line", text)
	require.Equal(t, []int{1}, pages)
}

func TestExtractTextHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><style>p{}</style><body><p>work &amp; school</p></body></html>"))
	}))
	defer srv.Close()

	text, _, err := NewHTTPExtractor().ExtractText(context.Background(), srv.URL, "html")
	require.NoError(t, err)
	require.NotContains(t, text, "<")
	require.Contains(t, text, "work & school")
}

func TestExtractTextFormFeedPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page one\fpage two\fpage three"))
	}))
	defer srv.Close()

	_, pages, err := NewHTTPExtractor().ExtractText(context.Background(), srv.URL, "txt")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, pages)
}

func TestExtractTextLongDocumentPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("line\n", 120)))
	}))
	defer srv.Close()

	_, pages, err := NewHTTPExtractor().ExtractText(context.Background(), srv.URL, "txt")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, pages)
}

func TestExtractTextUnsupportedFiletype(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary"))
	}))
	defer srv.Close()

	_, _, err := NewHTTPExtractor().ExtractText(context.Background(), srv.URL, "exe")
	require.Error(t, err)
}

func TestExtractTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := NewHTTPExtractor().ExtractText(context.Background(), srv.URL, "txt")
	require.Error(t, err)
}
