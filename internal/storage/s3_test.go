package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/recipebox/internal/config"
)

type recorded struct {
	method, path, contentType, body string
}

func fakeS3(t *testing.T) (*S3Store, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(b)})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	store, err := NewS3Store(context.Background(), config.S3Config{
		Region:    "us-east-1",
		Bucket:    "images",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		PathStyle: true,
	})
	require.NoError(t, err)
	return store, &calls
}

func TestS3Store_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	store, calls := fakeS3(t)

	ref, err := store.Put(ctx, "avatars/", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "avatars/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	require.NoError(t, store.Delete(ctx, ref))
	require.NoError(t, store.Delete(ctx, ""))

	require.Len(t, *calls, 2)
	put := (*calls)[0]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/images/"+ref, put.path)
	assert.Equal(t, "image/png", put.contentType)
	assert.Contains(t, put.body, "png-bytes")
	assert.Equal(t, http.MethodDelete, (*calls)[1].method)
}

func TestS3Store_Rejects(t *testing.T) {
	ctx := context.Background()
	store, calls := fakeS3(t)

	_, err := store.Put(ctx, "recipes", "application/pdf", []byte("x"))
	assert.Error(t, err)
	assert.ErrorIs(t, store.Delete(ctx, "https://elsewhere/x.png"), ErrForeignRef)
	assert.Empty(t, *calls)
	assert.True(t, AllowedContentType("image/jpeg"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	ref, err := m.Put(ctx, "/avatars/", "image/webp", []byte("img"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "avatars/"))
	assert.True(t, strings.HasSuffix(ref, ".webp"))
	assert.True(t, m.Has(ref))

	require.NoError(t, m.Delete(ctx, ref))
	assert.False(t, m.Has(ref))
	assert.ErrorIs(t, m.Delete(ctx, "https://cdn/x.png"), ErrForeignRef)

	_, err = m.Put(ctx, "avatars", "text/plain", []byte("x"))
	assert.Error(t, err)
}
