package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// TokenSource returns a cached token source backed by Application Default
// Credentials. Tokens are refreshed when they expire. A non-empty keyPath is
// exported as GOOGLE_APPLICATION_CREDENTIALS when the environment does not
// already name a key file.
func TokenSource(ctx context.Context, keyPath string) (oauth2.TokenSource, error) {
	if env := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); env == "" && keyPath != "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", keyPath)
	}

	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("unable to find google credentials: %w", err)
	}

	return oauth2.ReuseTokenSource(nil, creds.TokenSource), nil
}
