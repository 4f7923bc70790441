package main

import (
	"context"
	"time"

	"github.com/perchsocial/perch/cache"
	"github.com/perchsocial/perch/config"
	"github.com/perchsocial/perch/media"
	"github.com/perchsocial/perch/routes"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	verifier, err := utils.NewIdentityVerifier(cfg.IdentityPublicKey)
	if err != nil {
		utils.Sugar.Fatalf("identity verifier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	client, db, err := config.ConnectMongo(ctx, cfg)
	cancel()
	if err != nil {
		utils.Sugar.Fatalf("mongodb: %v", err)
	}

	st := store.NewMongo(client, db)
	if err := st.EnsureIndexes(context.Background()); err != nil {
		utils.Sugar.Fatalf("mongodb indexes: %v", err)
	}

	coordinator := store.NewCoordinator(st, utils.Sugar)

	uploader, err := media.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		utils.Sugar.Fatalf("media host: %v", err)
	}

	c := cache.New(cfg, utils.Sugar)

	r := routes.SetupRouter(routes.Deps{
		Store:       st,
		Coordinator: coordinator,
		Uploader:    uploader,
		Cache:       c,
		Verifier:    verifier,
	})

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(shutdownCtx); err != nil {
			utils.Sugar.Warnf("mongodb disconnect: %v", err)
		}
		c.Close()
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, shutdown); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
