package archive_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"narrator/internal/app/archive"

	"github.com/stretchr/testify/require"
)

type storedObject struct {
	bucket      string
	key         string
	data        []byte
	size        int64
	contentType string
}

type memStore struct {
	objects []storedObject
}

func (s *memStore) PutObject(ctx context.Context, bucket string, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.objects = append(s.objects, storedObject{bucket, objectName, data, size, contentType})

	return nil
}

func TestArchive(t *testing.T) {
	assert := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/file=/tmp/gradio/abc/narration.mp3", r.URL.Path)
		_, _ = w.Write([]byte("ID3FAKE"))
	}))
	defer srv.Close()

	store := &memStore{}
	archiver := archive.New(srv.Client(), store, &archive.Config{
		Bucket: "narrations",
		Prefix: "audio/",
	})

	key, err := archiver.Archive(context.Background(), srv.URL+"/file=/tmp/gradio/abc/narration.mp3", "abc123")
	assert.NoError(err)
	assert.Equal("audio/abc123.mp3", key)

	assert.Len(store.objects, 1)
	obj := store.objects[0]
	assert.Equal("narrations", obj.bucket)
	assert.Equal("audio/abc123.mp3", obj.key)
	assert.Equal([]byte("ID3FAKE"), obj.data)
	assert.EqualValues(7, obj.size)
	assert.Equal("audio/mpeg", obj.contentType)
}

func TestArchiveKeepsServerContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/x-wav")
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	store := &memStore{}
	archiver := archive.New(srv.Client(), store, &archive.Config{Bucket: "narrations"})

	key, err := archiver.Archive(context.Background(), srv.URL+"/file=out/audio", "e1")
	require.NoError(t, err)
	require.Equal(t, "e1.wav", key)
	require.Equal(t, "audio/x-wav", store.objects[0].contentType)
}

func TestArchiveDownloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := &memStore{}
	archiver := archive.New(srv.Client(), store, &archive.Config{Bucket: "narrations"})

	_, err := archiver.Archive(context.Background(), srv.URL+"/file=out/audio.wav", "e1")
	require.Error(t, err)
	require.Empty(t, store.objects)
}

func TestArchiveTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	store := &memStore{}
	archiver := archive.New(srv.Client(), store, &archive.Config{Bucket: "narrations", MaxSize: 32})

	_, err := archiver.Archive(context.Background(), srv.URL+"/file=out/audio.wav", "e1")
	require.ErrorContains(t, err, "larger than 32 bytes")
	require.Empty(t, store.objects)
}

func TestArchiveNoBucket(t *testing.T) {
	archiver := archive.New(nil, &memStore{}, &archive.Config{})

	_, err := archiver.Archive(context.Background(), "http://localhost/file=a.wav", "e1")
	require.Error(t, err)
}
