package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/events"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	appmw "github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type seedProduct struct {
	Title       string
	Description string
	Price       uint
	Slug        string
}

var seedUsers = []model.User{
	{UID: "demo-buyer", DisplayName: "Demo Buyer", Role: model.RoleUser},
	{UID: "demo-seller", DisplayName: "Demo Seller", Role: model.RoleUser},
	{UID: "demo-admin", DisplayName: "Demo Admin", Role: model.RoleAdmin},
}

var seedProducts = []seedProduct{
	{Title: "Wireless headphones", Description: "Over-ear, barely used, comes with case.", Price: 7600, Slug: "music"},
	{Title: "Oak side table", Description: "Solid wood, 45cm tall.", Price: 7800, Slug: "home-interior"},
	{Title: "Trail running shoes", Description: "Size 27cm, two runs old.", Price: 6200, Slug: "sports"},
}

func main() {
	_ = godotenv.Load()
	logging.Init(logging.Options{Level: "info", Pretty: true, Service: "seed"})
	if err := run(context.Background()); err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("seed failed")
	}
}

func run(ctx context.Context) error {
	l := logging.L()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	users := repository.NewUserRepository(gdb)
	products := repository.NewProductRepository(gdb)
	for i := range seedUsers {
		if err := users.Upsert(ctx, &seedUsers[i]); err != nil {
			return fmt.Errorf("upsert user %s: %w", seedUsers[i].UID, err)
		}
	}

	var first *model.Product
	for idx, sp := range seedProducts {
		p, err := products.FindByTitle(ctx, "demo-seller", sp.Title)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("find product %q: %w", sp.Title, err)
		}
		if p == nil {
			img := picsumURL(sp.Slug, idx+1)
			p = &model.Product{
				SellerUID:   "demo-seller",
				Title:       strings.TrimSpace(sp.Title),
				Description: strings.TrimSpace(sp.Description),
				Price:       sp.Price,
				ImageURL:    &img,
			}
			if err := products.Create(ctx, p); err != nil {
				return fmt.Errorf("insert product %q: %w", sp.Title, err)
			}
		}
		if first == nil {
			first = p
		}
	}

	dir := directory.NewStore(users, products, nil)
	msgRepo := repository.NewMessageRepository(gdb)
	convs := service.NewConversationService(repository.NewConversationRepository(gdb), msgRepo, dir)
	notifs := service.NewNotificationService(repository.NewNotificationRepository(gdb), dir)
	msgs := service.NewMessageService(convs, msgRepo, dir, notifs, events.Noop{})

	cv, created, err := convs.CreateForProduct(ctx, "demo-buyer", first.ID)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	if created {
		if _, err := msgs.Send(ctx, cv.ID, "demo-buyer", "Hi! Is this still available?"); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if _, err := msgs.Send(ctx, cv.ID, "demo-seller", "Yes, it is. Happy to answer questions."); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	l.Info().Int("users", len(seedUsers)).Int("products", len(seedProducts)).
		Uint64(logging.FieldConversationID, cv.ID).Bool("conversation_created", created).Msg("seed complete")

	if strings.EqualFold(cfg.AuthMode, "jwt") {
		jv := appmw.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		for _, u := range seedUsers {
			tok, err := jv.Issue(u.UID, u.Role, 24*time.Hour)
			if err != nil {
				return fmt.Errorf("issue token for %s: %w", u.UID, err)
			}
			fmt.Printf("%s\t%s\n", u.UID, tok)
		}
	}
	return nil
}

func picsumURL(slug string, itemIndex int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", slug, itemIndex)
}
