/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cjnewshub/apiserver/config"
	"github.com/cjnewshub/apiserver/internal/db"
	"github.com/cjnewshub/apiserver/internal/legacy"
	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
	"github.com/spf13/cobra"
)

var seedSample bool

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the chief account and optional sample content",
	Long: `Creates the chief account from CHIEF_USER_ID, CHIEF_NAME, CHIEF_EMAIL and
CHIEF_PASSWORD. Records that already exist are left untouched, so the
command can be rerun. Usage:

	cjnews seed
	cjnews seed --sample
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(os.Stdout, cfg.LogLevel)

		chief, err := chiefAccount(cfg.Auth)
		if err != nil {
			return err
		}
		snap := legacy.Snapshot{Users: []legacy.User{chief}}
		if seedSample {
			snap.Articles = sampleArticles(cfg.Auth.ChiefUserID)
			snap.Ads = sampleAds()
			snap.Pages = samplePages()
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		importer := legacy.NewImporter(legacy.Targets{
			Users:    store.NewUserRepository(conn),
			Articles: store.NewArticleRepository(conn),
			Ads:      store.NewAdvertisementRepository(conn),
			Pages:    store.NewEPaperRepository(conn),
		}, log)
		report, err := importer.Import(cmd.Context(), snap)
		if err != nil {
			return err
		}
		if report.Users.Skipped > 0 {
			log.Info(cmd.Context(), "chief account already present", "id", chief.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedSample, "sample", false, "also create sample articles, ads and e-paper pages")
}

func chiefAccount(cfg config.AuthConfig) (legacy.User, error) {
	email := strings.TrimSpace(cfg.ChiefEmail)
	if email == "" || cfg.ChiefPassword == "" {
		return legacy.User{}, errors.New("CHIEF_EMAIL and CHIEF_PASSWORD are required")
	}
	return legacy.User{
		User: types.User{
			ID:     cfg.ChiefUserID,
			Name:   cfg.ChiefName,
			Email:  strings.ToLower(email),
			Role:   types.RoleAdmin,
			Status: types.UserStatusActive,
		},
		Password: cfg.ChiefPassword,
	}, nil
}

func sampleArticles(authorID string) []types.Article {
	return []types.Article{
		{
			ID:         "sample-markets",
			Title:      "Global Markets Rally as Tech Sector Rebounds",
			Excerpt:    "Investors welcome a surprise turn as major technology firms report strong quarterly earnings.",
			Category:   "Business",
			Author:     "Newsroom",
			AuthorID:   authorID,
			Date:       "24-11-2025",
			ImageURL:   "https://picsum.photos/800/400",
			Content:    "Full article content goes here...",
			Tags:       []string{"Finance", "Stocks"},
			Status:     types.ArticlePublished,
			IsFeatured: true,
		},
		{
			ID:       "sample-architecture",
			Title:    "The Renaissance of Modern Architecture in Europe",
			Excerpt:  "Sustainable materials are reshaping historic skylines.",
			Category: "Culture",
			Author:   "Newsroom",
			AuthorID: authorID,
			Date:     "23-11-2025",
			ImageURL: "https://picsum.photos/800/401",
			Content:  "Full article content goes here...",
			Tags:     []string{"Architecture", "Europe"},
			Status:   types.ArticlePublished,
		},
	}
}

func sampleAds() []types.Advertisement {
	return []types.Advertisement{
		{
			ID:             "sample-leaderboard",
			AdvertiserName: "TechCorp Global",
			ImageURL:       "https://picsum.photos/728/90",
			TargetURL:      "https://example.com",
			Size:           types.AdSizeLeaderboard,
			Status:         types.AdActive,
			StartDate:      "2024-01-01",
			EndDate:        "2030-12-31",
		},
	}
}

func samplePages() []types.EPaperPage {
	pages := make([]types.EPaperPage, 0, 3)
	for i := 1; i <= 3; i++ {
		pages = append(pages, types.EPaperPage{
			ID:         fmt.Sprintf("sample-2025-11-24-p%d", i),
			PageNumber: i,
			ImageURL:   fmt.Sprintf("https://picsum.photos/1200/%d", 1799+i),
			Date:       "2025-11-24",
			Status:     types.EPaperActive,
		})
	}
	return pages
}
