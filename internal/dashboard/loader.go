// Package dashboard loads backend data into the application state and
// renders it into view models for the operator UI.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/logging"
	"github.com/livecommerce/console/internal/state"
)

// Backend is the read side of the backend client used by the loaders.
type Backend interface {
	ListProducts(ctx context.Context, filter backend.ProductFilter) ([]backend.Product, error)
	ListScripts(ctx context.Context, productID int64) ([]backend.Script, error)
	ScriptPersonas(ctx context.Context) ([]backend.ScriptPersona, error)
	VoicePersonas(ctx context.Context) ([]backend.VoicePersona, error)
	Stats(ctx context.Context) (*backend.Stats, error)
}

// Loader fetches backend data and replaces the matching cache wholesale.
type Loader struct {
	api   Backend
	state *state.AppState
	log   *slog.Logger
}

func NewLoader(api Backend, st *state.AppState) *Loader {
	return &Loader{
		api:   api,
		state: st,
		log:   logging.With(logging.ComponentDashboard),
	}
}

func (l *Loader) LoadProducts(ctx context.Context, filter backend.ProductFilter) ([]backend.Product, error) {
	products, err := l.api.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	l.state.SetProducts(products)
	l.log.Debug("Products loaded", "count", len(products))
	return products, nil
}

// LoadScripts loads the scripts of one product, or of every product when
// productID is state.AllProducts.
func (l *Loader) LoadScripts(ctx context.Context, productID int64) ([]backend.Script, error) {
	if productID == state.AllProducts {
		return l.LoadAllScripts(ctx)
	}

	scripts, err := l.api.ListScripts(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load scripts for product %d: %w", productID, err)
	}
	if p, ok := l.state.Product(productID); ok {
		tag(scripts, p)
	}
	l.state.SetScripts(productID, scripts)
	l.log.Debug("Scripts loaded", "product_id", productID, "count", len(scripts))
	return scripts, nil
}

// LoadAllScripts fetches the unfiltered product list, requests the scripts of
// every product concurrently and flattens them in product order, tagging each
// script with its product's name and SKU. The product cache is left alone so
// a filtered product grid survives. A product whose request fails is logged
// and left out; the load fails only when every request fails.
func (l *Loader) LoadAllScripts(ctx context.Context) ([]backend.Script, error) {
	products, err := l.api.ListProducts(ctx, backend.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("load products for all scripts: %w", err)
	}

	perProduct := make([][]backend.Script, len(products))
	errs := make([]error, len(products))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range products {
		g.Go(func() error {
			scripts, err := l.api.ListScripts(gctx, p.ID)
			if err != nil {
				l.log.Warn("Failed to load scripts for product", "product_id", p.ID, "error", err)
				errs[i] = err
				return nil
			}
			tag(scripts, p)
			perProduct[i] = scripts
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if len(products) > 0 && failed == len(products) {
		return nil, fmt.Errorf("load scripts for all products: %w", errors.Join(errs...))
	}

	all := []backend.Script{}
	for _, scripts := range perProduct {
		all = append(all, scripts...)
	}
	l.state.SetScripts(state.AllProducts, all)
	l.log.Debug("Scripts loaded for all products", "products", len(products), "failed", failed, "count", len(all))
	return all, nil
}

// ReloadScripts refetches whichever script list is currently loaded.
func (l *Loader) ReloadScripts(ctx context.Context) error {
	_, err := l.LoadScripts(ctx, l.state.ScriptsFilter())
	return err
}

func (l *Loader) LoadScriptPersonas(ctx context.Context) ([]backend.ScriptPersona, error) {
	personas, err := l.api.ScriptPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load script personas: %w", err)
	}
	l.state.SetScriptPersonas(personas)
	return personas, nil
}

func (l *Loader) LoadVoicePersonas(ctx context.Context) ([]backend.VoicePersona, error) {
	personas, err := l.api.VoicePersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load voice personas: %w", err)
	}
	l.state.SetVoicePersonas(personas)
	return personas, nil
}

func (l *Loader) LoadStats(ctx context.Context) (*backend.Stats, error) {
	stats, err := l.api.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	l.state.SetStats(stats)
	return stats, nil
}

// LoadAll performs the initial dashboard load: products, personas and stats
// in parallel, then the scripts of every product.
func (l *Loader) LoadAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := l.LoadProducts(gctx, backend.ProductFilter{})
		return err
	})
	g.Go(func() error {
		_, err := l.LoadScriptPersonas(gctx)
		return err
	})
	g.Go(func() error {
		_, err := l.LoadVoicePersonas(gctx)
		return err
	})
	g.Go(func() error {
		_, err := l.LoadStats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	_, err := l.LoadAllScripts(ctx)
	return err
}

func tag(scripts []backend.Script, p backend.Product) {
	for i := range scripts {
		scripts[i].ProductName = p.Name
		scripts[i].ProductSKU = p.SKU
	}
}
