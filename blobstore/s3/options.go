package s3

// UploadConfig configures the S3 upload manager.
type UploadConfig struct {
	// PartSize is the multipart part size. Default: 8MB.
	PartSize int64
	// Concurrency is the number of concurrent part uploads. Default: 5.
	Concurrency int
	// EnableChecksum requests CRC32C integrity validation. Default: true.
	EnableChecksum bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

type options struct {
	prefix   string
	region   string
	endpoint string
	upload   UploadConfig
}

// Option configures a Store.
type Option func(*options)

// WithPrefix prepends prefix to every key.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithRegion overrides the AWS region. Only used by New.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithEndpoint sets a custom S3 endpoint with path-style addressing.
// Only used by New.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithUploadConfig replaces the upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) {
		o.upload = cfg
	}
}

func applyOptions(opts []Option) options {
	o := options{upload: DefaultUploadConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
