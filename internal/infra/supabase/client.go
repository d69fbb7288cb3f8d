package supabase

import (
	"fmt"
	"strings"
	"sync"

	"pdf-viewer/internal/domain"

	"github.com/supabase-community/supabase-go"
)

// SupabaseClient implements the domain.SupabaseClient interface
type SupabaseClient struct {
	mu     sync.RWMutex
	client *supabase.Client
	config domain.Config
	logger domain.Logger
}

// NewSupabaseClient creates a new Supabase client instance
func NewSupabaseClient(config domain.Config, logger domain.Logger) domain.SupabaseClient {
	return &SupabaseClient{
		config: config,
		logger: logger,
	}
}

// Initialize establishes a connection to Supabase
func (s *SupabaseClient) Initialize() error {
	supabaseURL := s.config.GetSupabaseURL()
	supabaseKey := s.config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	s.logger.Info("Supabase client initialized successfully", "url", supabaseURL, "bucket", s.config.GetSupabaseBucket())
	return nil
}

// Download fetches an object from Supabase Storage.
func (s *SupabaseClient) Download(bucket, path string) ([]byte, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("Supabase client not initialized")
	}

	data, err := client.Storage.DownloadFile(bucket, path)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrDocumentNotFound, bucket, path)
		}
		return nil, fmt.Errorf("failed to download %s/%s: %w", bucket, path, err)
	}
	return data, nil
}

// Storage reports missing objects only through the error text.
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "404")
}
