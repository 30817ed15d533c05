package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"obscore/internal/archive/core"
)

// fakeS3 serves the handful of path-style S3 calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	fail    int
}

type fakeObject struct {
	body        []byte
	contentType string
	meta        http.Header
}

func respond(status int, body string, h http.Header) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: h, ContentLength: int64(len(body))}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != 0 {
		return respond(f.fail, "", nil), nil
	}
	key := ""
	if parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2); len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><ETag>&quot;e&quot;</ETag><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	}
	obj, ok := f.objects[key]
	headers := func() http.Header {
		h := http.Header{
			"Content-Length": {fmt.Sprint(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag-1"`},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		for k, v := range obj.meta {
			h[k] = v
		}
		return h
	}
	switch req.Method {
	case http.MethodHead:
		if !ok {
			return respond(http.StatusNotFound, "", nil), nil
		}
		resp := respond(http.StatusOK, "", headers())
		resp.ContentLength = int64(len(obj.body))
		return resp, nil
	case http.MethodGet:
		if !ok {
			return respond(http.StatusNotFound, "", nil), nil
		}
		return respond(http.StatusOK, string(obj.body), headers()), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		meta := http.Header{}
		for k, v := range req.Header {
			if strings.HasPrefix(strings.ToLower(k), "x-amz-meta-") {
				meta[k] = v
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), meta: meta}
		return respond(http.StatusOK, "", http.Header{"Etag": {`"etag-1"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, "", nil), nil
	}
	return respond(http.StatusNotImplemented, "", nil), nil
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]fakeObject)}
	store, err := New(context.Background(), Config{
		Bucket:          "reports",
		Endpoint:        "https://fake.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, fake
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing bucket to fail")
	}
}

func TestS3StoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeStore(t)
	if store.Driver() != core.DriverS3 || store.Bucket() != "reports" {
		t.Fatalf("unexpected store %s %s", store.Driver(), store.Bucket())
	}
	body := `{"program":"P"}`
	info, err := store.Put(ctx, "rollups/P/r1.json", strings.NewReader(body), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"program": "P"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "rollups/P/r1.json" || info.Size != int64(len(body)) || info.ETag != "etag-1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if !bytes.Equal(fake.objects["rollups/P/r1.json"].body, []byte(body)) {
		t.Fatalf("unexpected stored body %q", fake.objects["rollups/P/r1.json"].body)
	}
	if _, err := store.Put(ctx, "rollups/P/r1.json", strings.NewReader("{}"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "rollups/P/r1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != body || got.ContentType != "application/json" {
		t.Fatalf("unexpected object %+v %q", got, data)
	}

	if _, err := store.Put(ctx, "rollups/Q/r2.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put r2: %v", err)
	}
	list, err := store.List(ctx, "rollups/")
	if err != nil || len(list) != 2 || list[0].Key != "rollups/P/r1.json" || list[1].ETag != "e" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	if ok, err := store.Delete(ctx, "rollups/P/r1.json"); !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "rollups/P/r1.json"); ok || err != nil {
		t.Fatalf("expected missing object on second delete, got %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "rollups/P/r1.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "rollups/P/r1.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestS3StoreSurfacesServerErrors(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeStore(t)
	fake.fail = http.StatusForbidden
	if _, err := store.Put(ctx, "a.json", strings.NewReader("{}"), core.PutOptions{}); err == nil || errors.Is(err, core.ErrExists) {
		t.Fatalf("expected forbidden head to fail put, got %v", err)
	}
	if _, err := store.Head(ctx, "a.json"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected non-404 error, got %v", err)
	}
	if _, err := store.Put(ctx, "../a.json", strings.NewReader("{}"), core.PutOptions{}); err == nil {
		t.Fatalf("expected bad key to fail")
	}
}
