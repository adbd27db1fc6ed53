package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RayenLT/files/internal/config"
	"github.com/RayenLT/files/internal/services"
)

// Checks GitHub connectivity with the configured credentials: repository
// access, token validity, existing releases and the remaining API budget.
// Run it when /create starts returning 500s to tell a config problem from a
// GitHub-side one.
func main() {
	// Exits listing the missing keys when the GitHub settings are absent.
	config.LoadConfig()
	cfg := config.AppConfig

	fmt.Printf("Checking GitHub access for %s/%s\n\n", cfg.GithubOwner, cfg.GithubRepo)

	client := services.NewGithubClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false

	user, err := client.GetAuthenticatedUser(ctx)
	if err != nil {
		fmt.Printf("❌ Token check failed: %v\n", err)
		if errors.Is(err, services.ErrGithubUnauthorized) {
			fmt.Println("   The token is invalid or expired. Generate a new one with the 'repo' scope.")
		}
		failed = true
	} else {
		fmt.Printf("✅ Token valid, authenticated as %s\n", user.Login)
	}

	repo, err := client.GetRepository(ctx)
	if err != nil {
		fmt.Printf("❌ Repository check failed: %v\n", err)
		if errors.Is(err, services.ErrGithubNotFound) {
			fmt.Println("   Check GITHUB_OWNER and GITHUB_REPO, and that the token can see the repository.")
		}
		failed = true
	} else {
		visibility := "public"
		if repo.Private {
			visibility = "private"
		}
		fmt.Printf("✅ Repository %s reachable (%s)\n", repo.FullName, visibility)
	}

	releases, err := client.ListReleases(ctx)
	if err != nil {
		fmt.Printf("❌ Release listing failed: %v\n", err)
		failed = true
	} else {
		fmt.Printf("✅ Releases listable, %d existing\n", len(releases))
		for i, rel := range releases {
			if i >= 5 {
				fmt.Printf("   ... and %d more\n", len(releases)-5)
				break
			}
			fmt.Printf("   - %s (%s)\n", rel.Name, rel.TagName)
		}
	}

	rl, err := client.GetRateLimit(ctx)
	if err != nil {
		fmt.Printf("❌ Rate limit check failed: %v\n", err)
		failed = true
	} else {
		core := rl.Resources.Core
		fmt.Printf("✅ API budget: %d/%d remaining, resets %s\n",
			core.Remaining, core.Limit, time.Unix(core.Reset, 0).Format(time.RFC3339))
		if core.Remaining == 0 {
			fmt.Println("   The token is rate limited; uploads will fail until the reset.")
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("\nAll checks passed.")
}
