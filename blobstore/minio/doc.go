// Package minio stores containers in MinIO or any S3-compatible service
// through the MinIO client.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "fpdb/")
//
// NewFromEnv builds the client from MINIO_ENDPOINT, MINIO_ACCESS_KEY,
// MINIO_SECRET_KEY and MINIO_SECURE.
package minio
