package setup

import (
	"fmt"
	"time"

	"github.com/itchan-dev/caster/frontend/internal/apiclient"
	"github.com/itchan-dev/caster/frontend/internal/composer"
	"github.com/itchan-dev/caster/frontend/internal/notify"
	"github.com/itchan-dev/caster/frontend/internal/previewstore"
	"github.com/itchan-dev/caster/shared/clock"
	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/hub"
	"github.com/itchan-dev/caster/shared/jwt"
)

const (
	previewsTimeout = 10 * time.Second
	uploadTimeout   = 60 * time.Second
	hubTimeout      = 15 * time.Second
	sessionTTL      = 30 * 24 * time.Hour
)

// Dependencies holds everything a composer needs, built once from config.
type Dependencies struct {
	Config   *config.Config
	Previews *apiclient.APIClient
	Uploads  *apiclient.APIClient
	Hub      *apiclient.APIClient
	Builder  *hub.Builder
	Handles  *previewstore.Store
	Session  jwt.SessionService
	Notifier notify.Notifier
	Clock    clock.Clock
}

// SetupDependencies wires the HTTP clients, the message builder and the
// preview handle store.
func SetupDependencies(cfg *config.Config, notifier notify.Notifier) (*Dependencies, error) {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	clk := clock.Real()

	network, err := hub.ParseNetwork(cfg.Public.Endpoints.Network)
	if err != nil {
		return nil, err
	}
	builder, err := hub.NewBuilder(cfg.Private.SignerKey, network, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize message builder: %w", err)
	}

	handles, err := previewstore.NewTemp(cfg.Public.Composer.PreviewDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize preview store: %w", err)
	}

	uploadOpts := []apiclient.Option{apiclient.WithTimeout(uploadTimeout)}
	if cfg.Private.UploadClientID != "" {
		uploadOpts = append(uploadOpts, apiclient.WithHeader("Authorization", "Client-ID "+cfg.Private.UploadClientID))
	}

	deps := &Dependencies{
		Config:   cfg,
		Previews: apiclient.New(cfg.Public.Endpoints.PreviewsURL, apiclient.WithTimeout(previewsTimeout)),
		Uploads:  apiclient.New(cfg.Public.Endpoints.UploadURL, uploadOpts...),
		Hub:      apiclient.New(cfg.Public.Endpoints.HubURL, apiclient.WithTimeout(hubTimeout)),
		Builder:  builder,
		Handles:  handles,
		Notifier: notifier,
		Clock:    clk,
	}
	if cfg.Private.SessionSecret != "" {
		deps.Session = jwt.New(cfg.Private.SessionSecret, sessionTTL)
	}
	return deps, nil
}

// Identity resolves the author from a session token. Without a configured
// session secret the fallback identity is used as is.
func (d *Dependencies) Identity(token string, fallback domain.Identity) (domain.Identity, error) {
	if token == "" || d.Session == nil {
		if fallback.Fid == 0 {
			return domain.Identity{}, fmt.Errorf("no session token and no fid given")
		}
		return fallback, nil
	}
	return d.Session.DecodeIdentity(token)
}

// NewComposer mounts one composer for identity.
func (d *Dependencies) NewComposer(identity domain.Identity, opts composer.Options) *composer.Controller {
	return composer.New(composer.ConfigFrom(d.Config), composer.Deps{
		Identity: identity,
		Previews: d.Previews,
		Handles:  d.Handles,
		Uploader: d.Uploads,
		Builder:  d.Builder,
		Hub:      d.Hub,
		Notifier: d.Notifier,
		Clock:    d.Clock,
	}, opts)
}

func (d *Dependencies) Cleanup() error {
	return d.Handles.Cleanup()
}
