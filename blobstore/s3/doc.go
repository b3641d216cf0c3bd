// Package s3 stores containers in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("fpdb/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// Writes stream through the S3 upload manager, switching to multipart
// uploads for large containers. Aborting a blob cancels the upload and
// removes uploaded parts.
package s3
