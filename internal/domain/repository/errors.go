package repository

import "errors"

// ErrBucketNotFound is returned when the configured object storage bucket
// does not exist.
var ErrBucketNotFound = errors.New("bucket not found")
