package content

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	immoerrors "github.com/immoshift/immoshift-web/internal/errors"
	"github.com/immoshift/immoshift-web/internal/imageurl"
	"github.com/immoshift/immoshift-web/internal/model"
	"github.com/immoshift/immoshift-web/internal/normalize"
	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	norm := normalize.New(imageurl.New(srv.URL), normalize.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return New(srv.URL+"/", norm), srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGetArticle(t *testing.T) {
	var gotPath, gotUA string
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotUA = r.Header.Get("User-Agent")
		writeJSON(w, http.StatusOK, `{"id":1,"title":"Investir","slug":"investir","excerpt":"e","image":"/media/a.jpg",
			"author":{"id":9,"name":"Camille","picture":"media/c.png"},
			"paragraphs":[{"id":5,"media_type":"video_file","video_file":"/media/v.mp4","thumbnail":null,"position":0}]}`)
	}))

	a, err := c.GetArticle(context.Background(), "investir")
	require.NoError(t, err)

	assert.Equal(t, "/article/investir/", gotPath)
	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, srv.URL+"/media/a.jpg", a.Image)
	require.NotNil(t, a.Author)
	assert.Equal(t, srv.URL+"/media/c.png", a.Author.Picture)
	require.Len(t, a.Paragraphs, 1)
	assert.Equal(t, viewmodel.VideoFileMedia{URL: srv.URL + "/media/v.mp4"}, a.Paragraphs[0].Media)
}

func TestGetBySlugEscapesPath(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, `{"id":1,"title":"T","slug":"a b"}`)
	}))
	_, err := c.GetTraining(context.Background(), "a b/c")
	require.NoError(t, err)
	assert.Equal(t, "/training/a%20b%2Fc/", gotPath)
}

func TestEmptySlugSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	_, err := c.GetEbook(context.Background(), "")
	assert.True(t, immoerrors.HasCode(err, immoerrors.IMMO_NOT_FOUND), "err = %v", err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   immoerrors.ErrorCode
	}{
		{"not found", http.StatusNotFound, `{"detail":"Not found."}`, immoerrors.IMMO_NOT_FOUND},
		{"server error", http.StatusInternalServerError, `oops`, immoerrors.IMMO_TRANSPORT},
		{"bad gateway", http.StatusBadGateway, ``, immoerrors.IMMO_TRANSPORT},
		{"malformed json", http.StatusOK, `{"id":1,`, immoerrors.IMMO_TRANSPORT},
		{"contract violation", http.StatusOK, `{"id":"one","title":"T","slug":"t"}`, immoerrors.IMMO_TRANSPORT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			_, err := c.GetEbook(context.Background(), "guide")
			require.Error(t, err)
			assert.Equal(t, tt.want, immoerrors.CodeOf(err))
		})
	}
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base, normalize.New(imageurl.New(base)))
	_, err := c.GetHome(context.Background())
	assert.Equal(t, immoerrors.IMMO_TRANSPORT, immoerrors.CodeOf(err))
}

func TestCancelAbortsInFlightRequest(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetArticle(ctx, "slow")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, stderrors.Is(err, context.Canceled), "err = %v", err)
		assert.Equal(t, immoerrors.IMMO_TRANSPORT, immoerrors.CodeOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("GetArticle did not return after cancel")
	}
}

func TestWithTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, normalize.New(imageurl.New(srv.URL)), WithTimeout(30*time.Millisecond))
	_, err := c.GetHome(context.Background())
	assert.Equal(t, immoerrors.IMMO_TRANSPORT, immoerrors.CodeOf(err))
}

func TestGetHome(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/home/", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"testimonials":[{"id":1,"name":"Léa","role":"Investisseuse","avatar":"/media/l.jpg","quote":"Merci","rating":4.5}],
			"trainings":[{"id":2,"title":"F","slug":"f","image":"media/f.jpg","price":"1490.00","show_price":true,"position":0},
				{"id":5,"title":"G","slug":"g","image":"media/g.jpg","price":null,"show_price":false,"position":1}],
			"articles":[],"ebooks":[{"id":3,"title":"E","slug":"e","cover_image":"https://cdn.test/e.png","is_active":true,"position":0}]}`)
	}))

	h, err := c.GetHome(context.Background())
	require.NoError(t, err)
	require.Len(t, h.Testimonials, 1)
	assert.Equal(t, srv.URL+"/media/l.jpg", h.Testimonials[0].Avatar)
	assert.Equal(t, 4.5, h.Testimonials[0].Rating)
	assert.Equal(t, srv.URL+"/media/f.jpg", h.Trainings[0].Image)
	require.NotNil(t, h.Trainings[0].Price)
	assert.Equal(t, 1490.0, *h.Trainings[0].Price)
	assert.Nil(t, h.Trainings[1].Price)
	assert.Empty(t, h.Articles)
	assert.Equal(t, "https://cdn.test/e.png", h.Ebooks[0].CoverImage)
}

func TestGetTrainingDecimalPrice(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/training/f/", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id":2,"title":"F","slug":"f","short_description":"s","image":"/media/f.jpg",
			"price":"49.90","show_price":true,"is_active":true,"position":0,"paragraphs":[]}`)
	}))

	tr, err := c.GetTraining(context.Background(), "f")
	require.NoError(t, err)
	require.NotNil(t, tr.Price)
	assert.Equal(t, 49.9, *tr.Price)
	assert.True(t, tr.ShowPrice)
}

func TestSubmitEbookDownload(t *testing.T) {
	var got model.EbookDownloadRequest
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/download-ebook/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, `{"success":true,"message":"ok","download_url":"https://x/file.pdf","ebook_id":4,"ebook_title":"Guide"}`)
	}))

	resp, err := c.SubmitEbookDownload(context.Background(), model.EbookDownloadRequest{
		Ebook: 4, FirstName: "Léa", LastName: "Martin", Email: "lea@example.fr", ConsentMailing: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/file.pdf", resp.DownloadURL)
	assert.Equal(t, "Guide", resp.EbookTitle)
	assert.Equal(t, int64(4), got.Ebook)
	assert.Equal(t, "", got.Phone)
	assert.True(t, got.ConsentMailing)
}

func TestSubmitEbookDownloadPhoneOmitted(t *testing.T) {
	var raw map[string]interface{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeJSON(w, http.StatusOK, `{"success":true,"download_url":"https://x/f.pdf"}`)
	}))
	_, err := c.SubmitEbookDownload(context.Background(), model.EbookDownloadRequest{Ebook: 1, FirstName: "a", LastName: "b", Email: "a@b.c"})
	require.NoError(t, err)
	_, present := raw["phone"]
	assert.False(t, present, "phone should be omitted when empty")
}

func TestSubmitEbookDownloadBusinessRejection(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"message":"quota exceeded"}`)
	}))

	resp, err := c.SubmitEbookDownload(context.Background(), model.EbookDownloadRequest{Ebook: 1})
	require.Error(t, err)
	assert.Equal(t, immoerrors.IMMO_BUSINESS_REJECTION, immoerrors.CodeOf(err))
	assert.False(t, resp.Success)

	var e *immoerrors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "quota exceeded", e.Message)
}

func TestSubmitEbookDownloadStatusIsAuthoritative(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"success":true,"download_url":"https://x/f.pdf"}`)
	}))
	_, err := c.SubmitEbookDownload(context.Background(), model.EbookDownloadRequest{Ebook: 1})
	assert.Equal(t, immoerrors.IMMO_TRANSPORT, immoerrors.CodeOf(err))
}
