package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory S3API with two-object pages.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	getErr  error
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]string)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = string(data)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewS3Store(fake, "bucket", WithS3Prefix("app/"))

	if _, ok, err := s.GetItem(ctx, "theme"); ok || err != nil {
		t.Fatalf("GetItem(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	if err := s.SetItem(ctx, "theme", `"dark"`); err != nil {
		t.Fatalf("SetItem error: %v", err)
	}
	if _, ok := fake.objects["app/theme"]; !ok {
		t.Fatalf("object not stored under prefix: %v", fake.objects)
	}
	if ct := aws.ToString(fake.puts[0].ContentType); ct != "application/json" {
		t.Fatalf("ContentType = %q, want application/json", ct)
	}

	got, ok, err := s.GetItem(ctx, "theme")
	if err != nil || !ok || got != `"dark"` {
		t.Fatalf("GetItem = %q, %v, %v", got, ok, err)
	}

	if err := s.RemoveItem(ctx, "theme"); err != nil {
		t.Fatalf("RemoveItem error: %v", err)
	}
	if _, ok, _ := s.GetItem(ctx, "theme"); ok {
		t.Fatal("removed key still present")
	}
}

func TestS3StoreKeysPaginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["other/x"] = "1"
	s := NewS3Store(fake, "bucket")

	for _, k := range []string{"e", "d", "c", "b", "a"} {
		if err := s.SetItem(ctx, k, "1"); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	want := []string{"a", "b", "c", "d", "e"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys = %v, want %v", keys, want)
		}
	}
}

func TestS3StoreGetError(t *testing.T) {
	fake := newFakeS3()
	boom := errors.New("access denied")
	fake.getErr = boom
	s := NewS3Store(fake, "bucket")

	_, _, err := s.GetItem(context.Background(), "k")
	if !errors.Is(err, boom) {
		t.Fatalf("GetItem error = %v, want wrapped %v", err, boom)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&types.NoSuchKey{}) {
		t.Error("NoSuchKey should be not-found")
	}
	if !isNotFound(&types.NotFound{}) {
		t.Error("NotFound should be not-found")
	}
	if isNotFound(errors.New("other")) {
		t.Error("plain error should not be not-found")
	}
}
