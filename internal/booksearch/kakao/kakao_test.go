package kakao

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
)

const thumb = "https://search1.kakaocdn.net/thumb/R120x174.q85/?fname=http%3A%2F%2Ft1.daumcdn.net%2Flbook%2Fimage%2F5461853%3Ftimestamp%3D20231125174502"

const searchFixture = `{
  "documents": [
    {"authors": ["룰루 밀러"], "contents": "과학 논픽션", "datetime": "2021-12-17T00:00:00.000+09:00",
     "isbn": "1189327155 9791189327156", "price": 17000, "publisher": "곰출판",
     "thumbnail": "` + thumb + `", "title": "물고기는 존재하지 않는다",
     "url": "https://search.daum.net/search?w=bookpage&bookId=5461853"},
    {"authors": ["정서경", "박찬욱"], "datetime": "bogus", "isbn": "", "title": "헤어질 결심 각본",
     "thumbnail": "", "publisher": "을유문화사", "url": "https://example.com/2"}
  ],
  "meta": {"is_end": false, "pageable_count": 40, "total_count": 41}
}`

func newTestClient(t *testing.T, key string, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL), WithHTTPClient(server.Client())}, opts...)
	c := New(booksearch.StaticKey(key), logger.Discard().Logger, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestSearch(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, "rest-key", func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(searchFixture))
	})

	res, err := c.Search(context.Background(), "물고기", 5)
	require.NoError(t, err)

	assert.Equal(t, "KakaoAK rest-key", got.Header.Get("Authorization"))
	assert.Equal(t, "물고기", got.URL.Query().Get("query"))
	assert.Equal(t, "5", got.URL.Query().Get("size"))

	assert.Equal(t, 41, res.Total)
	require.Len(t, res.Books, 2)

	first := res.Books[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "룰루 밀러", first.Author)
	assert.Equal(t, "https://t1.daumcdn.net/lbook/image/5461853", first.Cover)
	assert.Equal(t, "9791189327156", first.ISBN13)
	assert.Equal(t, "2021-12-17", first.PubDate)
	assert.Equal(t, booksearch.Palette[0], first.Color)

	second := res.Books[1]
	assert.Equal(t, "정서경, 박찬욱", second.Author)
	assert.Empty(t, second.Cover)
	assert.Empty(t, second.PubDate)
	assert.Empty(t, second.ISBN13)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSearch_IDsAreDeterministic(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchFixture))
	})

	a, err := c.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	b, err := c.Search(context.Background(), "q", 10)
	require.NoError(t, err)

	assert.Equal(t, a.Books[0].ID, b.Books[0].ID)
	assert.Equal(t, a.Books[1].ID, b.Books[1].ID)
}

func TestSearch_CoverProxy(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchFixture))
	}, WithCoverProxy("/api/image-proxy/"))

	res, err := c.Search(context.Background(), "q", 10)
	require.NoError(t, err)

	cover := res.Books[0].Cover
	require.True(t, strings.HasPrefix(cover, "/api/image-proxy/cover.jpg?url="), cover)

	u, err := url.Parse(cover)
	require.NoError(t, err)
	assert.Equal(t, "https://t1.daumcdn.net/lbook/image/5461853", u.Query().Get("url"))
	assert.Empty(t, res.Books[1].Cover)
}

func TestSearch_ErrorStatusIncludesCode(t *testing.T) {
	c := newTestClient(t, "wrong", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorType":"AccessDeniedError","message":"wrong appKey"}`))
	})

	_, err := c.Search(context.Background(), "q", 10)

	var pe *booksearch.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, "AccessDeniedError", pe.Code)
	assert.Contains(t, pe.Message, "401")
	assert.Contains(t, pe.Message, "wrong appKey")
}

func TestSearch_MissingCredential(t *testing.T) {
	c := newTestClient(t, "", func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.Search(context.Background(), "q", 10)
	assert.ErrorIs(t, err, booksearch.ErrMissingCredential)
}

func TestOriginCover(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"embedded", thumb, "https://t1.daumcdn.net/lbook/image/5461853"},
		{"double encoded", "https://search1.kakaocdn.net/thumb/R120x174/?fname=http%253A%252F%252Ft1.daumcdn.net%252Flbook%252Fimage%252F1", "https://t1.daumcdn.net/lbook/image/1"},
		{"no fname", "https://image.aladin.co.kr/cover.jpg", "https://image.aladin.co.kr/cover.jpg"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginCover(tt.in))
		})
	}
}
