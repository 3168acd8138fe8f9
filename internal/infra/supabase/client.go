package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"

	"pdf-annotator/internal/domain"
)

// NewClient connects to the Supabase project named in config. It
// returns domain.ErrStorageDisabled when the URL or key is missing.
func NewClient(config domain.Config, logger domain.Logger) (*supabase.Client, error) {
	supabaseURL := config.GetSupabaseURL()
	supabaseKey := config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return nil, domain.ErrStorageDisabled
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	logger.Info("Supabase client initialized successfully", "url", supabaseURL)
	return client, nil
}
