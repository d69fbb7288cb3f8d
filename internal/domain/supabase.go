package domain

// SupabaseClient is the connection to Supabase Storage.
type SupabaseClient interface {
	Initialize() error
	// Download returns the object at path in bucket.
	Download(bucket, path string) ([]byte, error)
}
