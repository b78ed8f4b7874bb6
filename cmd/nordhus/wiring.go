package main

import (
	"github.com/jayljohnson/nordhus.site/internal/config"
	"github.com/jayljohnson/nordhus.site/internal/gitops"
	"github.com/jayljohnson/nordhus.site/internal/lifecycle"
	"github.com/jayljohnson/nordhus.site/internal/manifest"
	"github.com/jayljohnson/nordhus.site/internal/photos"
	"github.com/jayljohnson/nordhus.site/internal/photosync"
	"github.com/jayljohnson/nordhus.site/internal/postgen"
	"github.com/jayljohnson/nordhus.site/internal/tracker"
)

// buildManager wires the lifecycle manager from configuration. The photo
// client is only constructed when the monitoring flag is on; with it off no
// component capable of a photo-service network call exists.
func buildManager(cfg *config.Config) (*lifecycle.Manager, error) {
	store := manifest.NewStore(cfg.SiteDir)
	branches := gitops.NewCoordinator(cfg.SiteDir)

	var photoClient photos.Client
	if cfg.PhotoMonitoring {
		c, err := photos.NewCloudinaryClient(cfg.CloudinaryURL)
		if err != nil {
			return nil, err
		}
		photoClient = c
	}
	engine := photosync.New(cfg.PhotoMonitoring, photoClient, store, branches, cfg.Retry.Policy())

	var gateway tracker.Gateway
	if cfg.GitHubToken != "" {
		gw, err := tracker.NewGitHubClient(cfg.RepoOwner, cfg.RepoName, cfg.GitHubToken, "")
		if err != nil {
			return nil, err
		}
		gateway = gw
	}

	return lifecycle.New(store, branches, engine, gateway, postgen.TemplateGenerator{}), nil
}
