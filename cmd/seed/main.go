package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type seedProduct struct {
	title    string
	category string
	variants []product.VariantInput
}

var seedCategories = []categories.CategoryInput{
	{Name: "Men"},
	{Name: "Women"},
	{Name: "Accessories"},
}

var seedProducts = []seedProduct{
	{
		title:    "Classic Cotton Tee",
		category: "men",
		variants: []product.VariantInput{
			{Color: "White", Size: "M", Material: "Cotton", Price: decimal.RequireFromString("249.00"), QtyAvailable: 40, ReorderPoint: 5},
			{Color: "Black", Size: "L", Material: "Cotton", Price: decimal.RequireFromString("249.00"), QtyAvailable: 25, ReorderPoint: 5},
		},
	},
	{
		title:    "Linen Summer Dress",
		category: "women",
		variants: []product.VariantInput{
			{Color: "Sand", Size: "S", Material: "Linen", Price: decimal.RequireFromString("899.00"), QtyAvailable: 12, ReorderPoint: 3},
			{Color: "Sand", Size: "M", Material: "Linen", Price: decimal.RequireFromString("899.00"), QtyAvailable: 3, ReorderPoint: 3},
		},
	},
	{
		title:    "Leather Belt",
		category: "accessories",
		variants: []product.VariantInput{
			{Color: "Brown", Size: "One Size", Material: "Leather", Price: decimal.RequireFromString("349.50"), QtyAvailable: 60, ReorderPoint: 10},
		},
	},
}

func main() {
	adminEmail := flag.String("admin-email", "", "create an admin account with this email")
	adminPassword := flag.String("admin-password", "", "password for -admin-email")
	flag.Parse()

	bootstrap.Main("seed", func(ctx context.Context, rt *bootstrap.Runtime) error {
		return seed(ctx, rt, *adminEmail, *adminPassword)
	})
}

func seed(ctx context.Context, rt *bootstrap.Runtime, adminEmail, adminPassword string) error {
	logg, dbClient := rt.Logger, rt.DB

	if adminEmail != "" {
		if err := seedAdmin(ctx, rt.Config, dbClient, adminEmail, adminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logg.Info(logg.WithField(ctx, "email", adminEmail), "admin ready")
	}

	categoryIDs, err := seedCatalogCategories(ctx, categories.NewRepository(dbClient.DB()))
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	products, err := product.NewService(product.NewRepository(dbClient.DB()), dbClient, nil, logg)
	if err != nil {
		return err
	}
	created := 0
	for _, item := range seedProducts {
		categoryID := categoryIDs[item.category]
		_, err := products.CreateProduct(ctx, product.CreateProductInput{
			Title:       item.title,
			Description: item.title,
			CategoryID:  &categoryID,
			IsActive:    true,
			Variants:    item.variants,
		})
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed product %q: %w", item.title, err)
		}
		created++
	}
	logg.Info(logg.WithField(ctx, "products_created", created), "seed complete")
	return nil
}

func seedAdmin(ctx context.Context, cfg *config.Config, dbClient *db.Client, email, password string) error {
	register, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:     dbClient,
		Hasher: security.NewHasher(cfg.Password),
	})
	if err != nil {
		return err
	}
	_, err = register.RegisterAdmin(ctx, auth.RegisterRequest{
		FirstName: "Store",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
	})
	if pkgerrors.Is(err, pkgerrors.CodeConflict) {
		return nil
	}
	return err
}

// seedCatalogCategories creates missing categories and returns every seeded
// category id keyed by slug.
func seedCatalogCategories(ctx context.Context, repo *categories.Repository) (map[string]uuid.UUID, error) {
	svc, err := categories.NewService(repo)
	if err != nil {
		return nil, err
	}
	for _, input := range seedCategories {
		if _, err := svc.Create(ctx, input); err != nil && !pkgerrors.Is(err, pkgerrors.CodeConflict) {
			return nil, err
		}
	}
	existing, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uuid.UUID, len(existing))
	for _, c := range existing {
		ids[c.Slug] = c.ID
	}
	return ids, nil
}
