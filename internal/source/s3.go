package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/widget"
)

// S3API is the subset of the S3 client used by S3 sources.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 is a catalog stored as a single {"result": [...]} JSON object in S3.
// The object need not be sorted; S3 sorts it on every fetch.
type S3 struct {
	client S3API
	bucket string
	key    string
	origin widget.Origin
	logger *slog.Logger
}

// NewS3 creates a source for s3://bucket/key.
func NewS3(client S3API, bucket, key string, opts Options) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		key:    strings.TrimPrefix(key, "/"),
		origin: opts.Origin,
		logger: opts.logger(),
	}
}

// OpenS3 creates a source for an s3:// URL, building a client from the
// default AWS configuration unless opts carries one.
func OpenS3(ctx context.Context, u *url.URL, opts Options) (*S3, error) {
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, errors.New("E211").WithDetail("S3 locators take the form s3://bucket/key, got " + u.String())
	}

	client := opts.S3
	if client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.New("E210").WithDetail("load AWS config: " + err.Error()).Wrap(err)
		}
		client = s3.NewFromConfig(cfg)
	}
	return NewS3(client, bucket, key, opts), nil
}

// Locator returns the s3:// URL of the catalog object.
func (s *S3) Locator() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Fetch reads the catalog object and emits its records ordered by tree path.
// When the object is truncated, the records read so far are still emitted.
func (s *S3) Fetch(ctx context.Context, emit func(widget.Widget) error) error {
	ws, err := s.load(ctx)
	sortByTreePath(ws)
	if emitErr := emitAll(ws, emit); emitErr != nil {
		return emitErr
	}
	return err
}

// FetchPage returns one page of the catalog ordered by name.
func (s *S3) FetchPage(ctx context.Context, n, size int) ([]widget.Widget, error) {
	ws, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sortByName(ws)
	return page(ws, n, size), nil
}

func (s *S3) load(ctx context.Context) ([]widget.Widget, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, errors.New("E210").
			WithDetail(fmt.Sprintf("get %s: %v", s.Locator(), err)).
			Wrap(err)
	}
	defer out.Body.Close()

	var ws []widget.Widget
	err = decodeEnvelope(out.Body, s.origin, s.logger, func(w widget.Widget) error {
		if s.origin == widget.OriginRemote {
			w.RemoteLocator = s.Locator() + "#" + w.ID
		}
		ws = append(ws, w)
		return nil
	})
	if err != nil {
		return ws, errors.New("E210").
			WithDetail("Invalid catalog object " + s.Locator() + ": " + err.Error()).
			Wrap(err)
	}
	return ws, nil
}
