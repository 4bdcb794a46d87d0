package domain

import "time"

// Media is an uploaded blob's metadata. Immutable after creation; the bytes
// themselves live in object storage under (Bucket, ObjectKey).
type Media struct {
	ID             string
	OwnerID        string
	Bucket         string
	ObjectKey      string
	ContentType    string
	SizeBytes      int64
	ChecksumSHA256 string
	CreatedAt      time.Time
}
