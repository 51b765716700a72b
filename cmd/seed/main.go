// Command seed fills a running API with demo users, prompts and votes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/prompt-board/backend/internal/models"
	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
	"github.com/emilythestrangee/prompt-board/backend/internal/webclient"
)

var (
	categoryNames = []string{"Photography", "Illustration", "Architecture", "Portraits", "Landscapes", "Concept Art"}
	modelNames    = []string{"Stable Diffusion XL", "Midjourney v6", "DALL-E 3", "Flux"}
)

type options struct {
	apiURL        string
	adminEmail    string
	adminPassword string
	users         int
	prompts       int
	votes         int
	seed          int64
}

func main() {
	var opts options
	flag.StringVar(&opts.apiURL, "api", envOr("API_URL", "http://localhost:8080/api/v1"), "API base URL")
	flag.StringVar(&opts.adminEmail, "admin-email", os.Getenv("ADMIN_EMAIL"), "bootstrap admin email")
	flag.StringVar(&opts.adminPassword, "admin-password", os.Getenv("ADMIN_PASSWORD"), "bootstrap admin password")
	flag.IntVar(&opts.users, "users", 10, "users to register")
	flag.IntVar(&opts.prompts, "prompts", 3, "prompts per user")
	flag.IntVar(&opts.votes, "votes", 15, "votes per user")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), opts); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, opts options) error {
	if opts.adminEmail == "" || opts.adminPassword == "" {
		return errors.New("admin credentials are required (ADMIN_EMAIL, ADMIN_PASSWORD)")
	}

	faker := gofakeit.New(opts.seed)
	api := webclient.New(opts.apiURL)

	adminToken, err := api.AdminLogin(ctx, opts.adminEmail, opts.adminPassword)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}
	admin := api.WithToken(adminToken)

	categoryIDs, err := ensureCategories(ctx, admin, faker)
	if err != nil {
		return err
	}
	modelIDs, err := ensureModels(ctx, admin, faker)
	if err != nil {
		return err
	}
	if len(categoryIDs) == 0 || len(modelIDs) == 0 {
		return errors.New("catalog is empty")
	}
	slog.Info("catalog ready", "categories", len(categoryIDs), "models", len(modelIDs))

	users := make([]*webclient.Client, 0, opts.users)
	var promptIDs []string
	for i := range opts.users {
		email := fmt.Sprintf("seed%d.%s", i, strings.ToLower(faker.Email()))
		res, err := api.Register(ctx, email, "password123", faker.Name())
		if err != nil {
			return fmt.Errorf("registering %s: %w", email, err)
		}
		user := api.WithToken(res.Token)
		users = append(users, user)

		for range opts.prompts {
			prompt, err := user.CreatePrompt(ctx, fakePrompt(faker, categoryIDs, modelIDs))
			if err != nil {
				return fmt.Errorf("creating prompt: %w", err)
			}
			promptIDs = append(promptIDs, prompt.ID)
		}
	}
	slog.Info("users and prompts created", "users", len(users), "prompts", len(promptIDs))

	if len(promptIDs) == 0 {
		return nil
	}

	// Each user gets its own plan up front; the faker is not safe for concurrent use.
	type ballot struct {
		promptID string
		value    int
	}
	plans := make([][]ballot, len(users))
	for i := range users {
		for range opts.votes {
			value := votes.Up
			if faker.Number(1, 4) == 1 {
				value = votes.Down
			}
			plans[i] = append(plans[i], ballot{promptID: promptIDs[faker.Number(0, len(promptIDs)-1)], value: value})
		}
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(8)
	for i, user := range users {
		grp.Go(func() error {
			for _, b := range plans[i] {
				if _, err := user.Vote(grpCtx, b.promptID, b.value); err != nil {
					return fmt.Errorf("voting on %s: %w", b.promptID, err)
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	slog.Info("seeding complete", "votes", len(users)*opts.votes)
	return nil
}

func isConflict(err error) bool {
	var apiErr *webclient.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

func ensureCategories(ctx context.Context, admin *webclient.Client, faker *gofakeit.Faker) ([]string, error) {
	for _, name := range categoryNames {
		_, err := admin.CreateCategory(ctx, name, faker.Sentence(8))
		if err != nil && !isConflict(err) {
			return nil, fmt.Errorf("creating category %q: %w", name, err)
		}
	}
	existing, err := admin.Categories(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(existing))
	for _, c := range existing {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func ensureModels(ctx context.Context, admin *webclient.Client, faker *gofakeit.Faker) ([]string, error) {
	for _, name := range modelNames {
		_, err := admin.CreateModel(ctx, name, faker.Sentence(8))
		if err != nil && !isConflict(err) {
			return nil, fmt.Errorf("creating model %q: %w", name, err)
		}
	}
	existing, err := admin.Models(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(existing))
	for _, m := range existing {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func fakePrompt(faker *gofakeit.Faker, categoryIDs, modelIDs []string) models.CreatePromptRequest {
	title := strings.TrimSuffix(faker.Sentence(5), ".")
	if len(title) > 100 {
		title = title[:100]
	}

	tags := make([]string, 0, 3)
	for range faker.Number(0, 3) {
		if word := strings.ToLower(faker.Word()); len(word) <= 20 {
			tags = append(tags, word)
		}
	}

	return models.CreatePromptRequest{
		Title:       title,
		Description: faker.Paragraph(1, 3, 12, " "),
		ImageURL:    faker.ImageURL(640, 480),
		CategoryID:  categoryIDs[faker.Number(0, len(categoryIDs)-1)],
		ModelID:     modelIDs[faker.Number(0, len(modelIDs)-1)],
		Tags:        tags,
	}
}
