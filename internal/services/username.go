package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// deriveUsername builds the base username from the registrant's name:
// "Ada" + "Lovelace" becomes "ada.lovelace"; embedded spaces become dots.
func deriveUsername(firstName, lastName string) string {
	normalize := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", ".")
	}
	return normalize(firstName) + "." + normalize(lastName)
}

// probeUsername linearly probes base, base1, base2, ... until a username not
// present in the local database is found.
func probeUsername(ctx context.Context, repo UserRepository, base string) (string, error) {
	candidate := base

	for counter := 1; ; counter++ {
		_, err := repo.GetByUsername(ctx, candidate)
		if errors.Is(err, models.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe username %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}
