package s3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"churchledger/internal/blob/core"
)

// fakeS3 implements the handful of bucket operations the store issues.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
}

type fakeObject struct {
	body        []byte
	contentType string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string]fakeObject)} }

func respond(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: header, ContentLength: int64(len(body))}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeChunked(body)
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, "", http.Header{"Etag": {`"etag-` + key + `"`}}), nil
	case http.MethodHead:
		if obj, ok := f.objects[key]; ok {
			return respond(http.StatusOK, "", http.Header{"Content-Length": {strconv.Itoa(len(obj.body))}}), nil
		}
		return respond(http.StatusNotFound, "", nil), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return respond(http.StatusOK, string(obj.body), http.Header{
			"Content-Type":   {obj.contentType},
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Last-Modified":  {"Mon, 03 Jun 2024 10:00:00 GMT"},
			"Etag":           {`"etag-` + key + `"`},
		}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, "", nil), nil
	}
	return respond(http.StatusNotImplemented, "", nil), nil
}

func (f *fakeS3) list(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	start, _ := strconv.Atoi(req.URL.Query().Get("continuation-token"))
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	if end < len(keys) {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", end)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-06-03T10:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}})
}

// decodeChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n" repeated until a zero chunk.
func decodeChunked(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size == 0 {
			return out
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}

func newTestStore(t *testing.T, fake *fakeS3) *Store {
	t.Helper()
	store, err := New(context.Background(), Config{
		Bucket:          "ledger",
		Endpoint:        "https://s3.test.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	}, func(o *awsS3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.RetryMaxAttempts = 1
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestS3StorePutGetList(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newTestStore(t, fake)
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	doc := `{"Grace Chapel":{"initials":"GC"}}`
	info, err := store.Put(ctx, "backups/a.json", strings.NewReader(doc), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(doc)) || info.ETag != "etag-backups/a.json" {
		t.Fatalf("unexpected put info %+v", info)
	}
	if got := string(fake.objects["backups/a.json"].body); got != doc {
		t.Fatalf("stored body mismatch: %q", got)
	}

	info, rc, err := store.Get(ctx, "backups/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != doc || info.ContentType != "application/json" {
		t.Fatalf("unexpected get %q %+v", body, info)
	}
	if !info.LastModified.Equal(time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last modified %v", info.LastModified)
	}

	if _, err := store.Put(ctx, "backups/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "other/c.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put c: %v", err)
	}
	infos, err := store.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "backups/a.json" || infos[1].Key != "backups/b.json" {
		t.Fatalf("unexpected list %+v", infos)
	}
}

func TestS3StoreListFollowsContinuation(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.pageSize = 1
	store := newTestStore(t, fake)
	for _, k := range []string{"backups/1", "backups/2", "backups/3"} {
		if _, err := store.Put(ctx, k, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	infos, err := store.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 entries across pages, got %+v", infos)
	}
}

func TestS3StoreMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeS3())
	if _, _, err := store.Get(ctx, "missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := store.Delete(ctx, "missing.json")
	if err != nil || ok {
		t.Fatalf("expected delete of missing key to report false, got %v %v", ok, err)
	}
	if _, err := store.Put(ctx, "present.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err = store.Delete(ctx, "present.json")
	if err != nil || !ok {
		t.Fatalf("expected delete to report true, got %v %v", ok, err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDecodeChunked(t *testing.T) {
	if got := string(decodeChunked([]byte("5;chunk-signature=abc\r\nhello\r\n0\r\n\r\n"))); got != "hello" {
		t.Fatalf("unexpected decode %q", got)
	}
}
