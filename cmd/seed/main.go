package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"knowledgehub/backend/internal/config"
	"knowledgehub/backend/internal/logging"
	"knowledgehub/backend/internal/repository"
	"knowledgehub/backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	// Apply schema
	if _, err := pool.Exec(ctx, repository.Schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Schema applied")

	store := repository.NewPostgresStore(pool)

	// 1. Seed accounts
	ensureUser(ctx, store, logger, "admin@localhost", "Site Admin", models.RoleAdmin)
	author := ensureUser(ctx, store, logger, "author@localhost", "Demo Author", models.RoleUser)
	reviewer := ensureUser(ctx, store, logger, "reviewer@localhost", "Demo Reviewer", models.RoleUser)

	// 2. Seed a team container with a folder
	container, err := store.GetContainer(ctx, seedContainerID)
	if errors.Is(err, repository.ErrNotFound) {
		container = &models.Container{ID: seedContainerID, Name: "Engineering"}
		if err := store.CreateContainer(ctx, container); err != nil {
			log.Fatalf("Failed to create container: %v", err)
		}
		if err := store.CreateFolder(ctx, &models.Folder{
			ID:          uuid.New().String(),
			ContainerID: container.ID,
			Name:        "Runbooks",
		}); err != nil {
			log.Fatalf("Failed to create folder: %v", err)
		}
		logger.Info("Seeded container %q", container.Name)
	} else if err != nil {
		log.Fatalf("Failed to look up container: %v", err)
	} else {
		logger.Info("Found existing container %q", container.Name)
	}

	// 3. Memberships: author writes, reviewer reviews
	ensureMembership(ctx, store, logger, author.ID, container.ID, models.MemberEditor)
	ensureMembership(ctx, store, logger, reviewer.ID, container.ID, models.MemberReviewer)

	// 4. A draft document in the author's private workspace
	if _, err := store.GetDocument(ctx, seedDocumentID); errors.Is(err, repository.ErrNotFound) {
		workspace := author.ID
		doc := &models.Document{
			ID:          seedDocumentID,
			Title:       "Onboarding Guide",
			OwnerID:     author.ID,
			Status:      models.StatusDraft,
			WorkspaceID: &workspace,
		}
		if err := store.CreateDocument(ctx, doc); err != nil {
			log.Fatalf("Failed to create document: %v", err)
		}
		logger.Info("Seeded draft document %q", doc.Title)
	} else if err != nil {
		log.Fatalf("Failed to look up document: %v", err)
	}

	logger.Info("Seeding complete!")
}

// Fixed ids so re-runs find the same rows.
const (
	seedContainerID = "6b1f6f60-0000-4000-8000-000000000001"
	seedDocumentID  = "6b1f6f60-0000-4000-8000-000000000002"
)

func ensureUser(ctx context.Context, store repository.Store, logger *logging.Logger, email, name string, role models.GlobalRole) *models.User {
	user, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info("Found existing user %s", email)
		return user
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("Failed to look up user %s: %v", email, err)
	}

	user = &models.User{
		ID:         uuid.New().String(),
		Email:      email,
		Name:       name,
		GlobalRole: role,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		log.Fatalf("Failed to create user %s: %v", email, err)
	}
	logger.Info("Seeded user %s (%s)", email, role)
	return user
}

func ensureMembership(ctx context.Context, store repository.Store, logger *logging.Logger, userID, containerID string, role models.MembershipRole) {
	existing, err := store.GetMembership(ctx, userID, containerID)
	if err != nil {
		log.Fatalf("Failed to look up membership: %v", err)
	}
	if existing != nil {
		return
	}
	if err := store.CreateMembership(ctx, &models.Membership{
		UserID:      userID,
		ContainerID: containerID,
		Role:        role,
	}); err != nil {
		log.Fatalf("Failed to create membership: %v", err)
	}
	logger.Info("Seeded membership %s -> %s (%s)", userID, containerID, role)
}
