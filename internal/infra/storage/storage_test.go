package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	pages   [][]string
	copied  map[string]string
	copyErr error
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeObjects) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := 0
	if in.ContinuationToken != nil {
		fmt.Sscanf(*in.ContinuationToken, "page-%d", &page)
	}
	out := &s3.ListObjectsV2Output{}
	for _, key := range f.pages[page] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	if page+1 < len(f.pages) {
		out.NextContinuationToken = aws.String(fmt.Sprintf("page-%d", page+1))
	}
	return out, nil
}

func (f *fakeObjects) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	if f.copied == nil {
		f.copied = map[string]string{}
	}
	f.copied[aws.ToString(in.CopySource)] = aws.ToString(in.Key)
	return &s3.CopyObjectOutput{}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + aws.ToString(in.Key) + "?sig=1"}, nil
}

func TestCopyFolderFollowsContinuation(t *testing.T) {
	objects := &fakeObjects{pages: [][]string{
		{"team/doc_a/1.png", "team/doc_a/2.png"},
		{"team/doc_a/file.pdf"},
	}}
	s := &S3{Bucket: "docs", cli: objects}

	n, err := s.CopyFolder(context.Background(), "team/doc_a/", "team/doc_b/")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "team/doc_b/file.pdf", objects.copied["docs/team/doc_a/file.pdf"])
	assert.Equal(t, "team/doc_b/1.png", objects.copied["docs/team/doc_a/1.png"])
}

func TestCopyFolderStopsOnError(t *testing.T) {
	objects := &fakeObjects{
		pages:   [][]string{{"team/doc_a/1.png"}},
		copyErr: errors.New("denied"),
	}
	s := &S3{Bucket: "docs", cli: objects}

	n, err := s.CopyFolder(context.Background(), "team/doc_a/", "team/doc_b/")
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestPresignGetTrimsLeadingSlash(t *testing.T) {
	s := &S3{Bucket: "docs", presigner: fakePresigner{}, presignTTL: defaultPresignTTL}

	url, err := s.PresignGet(context.Background(), "/team/doc_a/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/team/doc_a/file.pdf?sig=1", url)
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	s := &S3{Bucket: "docs", presigner: fakePresigner{}, presignTTL: defaultPresignTTL}

	t.Run("blob urls pass through", func(t *testing.T) {
		r := NewResolver(s, "")
		got, err := r.Resolve(ctx, "https://blob.example/a.pdf", "VERCEL_BLOB")
		require.NoError(t, err)
		assert.Equal(t, "https://blob.example/a.pdf", got)
	})

	t.Run("s3 keys are presigned", func(t *testing.T) {
		r := NewResolver(s, "")
		got, err := r.Resolve(ctx, "team/doc_a/a.pdf", "S3_PATH")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example/team/doc_a/a.pdf?sig=1", got)
	})

	t.Run("distribution host wins", func(t *testing.T) {
		r := NewResolver(s, "cdn.example/")
		got, err := r.Resolve(ctx, "/team/doc_a/a.pdf", "S3_PATH")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/team/doc_a/a.pdf", got)
	})

	t.Run("unknown storage", func(t *testing.T) {
		r := NewResolver(s, "")
		_, err := r.Resolve(ctx, "x", "FTP")
		require.Error(t, err)
	})
}

func TestDocumentCopier(t *testing.T) {
	objects := &fakeObjects{pages: [][]string{{"team1/doc_abc123/file.pdf"}}}
	c := NewDocumentCopier(&S3{Bucket: "docs", cli: objects})
	c.newID = func() string { return "doc_new" }

	res, err := c.Copy(context.Background(), "team1", "team1/doc_abc123/file.pdf", "S3_PATH")
	require.NoError(t, err)
	assert.Equal(t, "team1/doc_abc123/", res.FromLocation)
	assert.Equal(t, "team1/doc_new/", res.ToLocation)
	assert.Equal(t, 1, res.Copied)
	assert.Equal(t, "team1/doc_new/file.pdf", objects.copied["docs/team1/doc_abc123/file.pdf"])

	_, err = c.Copy(context.Background(), "team1", "team1/nothing/file.pdf", "S3_PATH")
	assert.ErrorIs(t, err, ErrInvalidFilePath)

	_, err = c.Copy(context.Background(), "team1", "https://blob/doc_x/a.pdf", "VERCEL_BLOB")
	assert.ErrorIs(t, err, ErrUnsupportedCopy)
}
