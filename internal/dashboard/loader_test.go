package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/state"
)

func newTestLoader(t *testing.T, handler http.HandlerFunc) (*Loader, *state.AppState) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	st := state.New()
	return NewLoader(backend.New(srv.URL, 5*time.Second), st), st
}

func productsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		id := i + 1
		parts[i] = fmt.Sprintf(`{"id":%d,"sku":"SKU-%d","name":"Product %d","price":100}`, id, id, id)
	}
	return `{"products":[` + strings.Join(parts, ",") + `],"total":` + strconv.Itoa(n) + `}`
}

func scriptsJSON(productID, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"id":%d,"product_id":%d,"title":"s","content":"Buy now","has_mp3":false,"can_edit":true}`, productID*100+i, productID)
	}
	return `{"scripts":[` + strings.Join(parts, ",") + `]}`
}

func TestLoadAllScriptsFansOutPerProduct(t *testing.T) {
	const products = 5
	counts := map[int]int{1: 2, 2: 0, 3: 4, 4: 1, 5: 3}

	var (
		mu       sync.Mutex
		inFlight int
		peak     int
		calls    int
		release  = make(chan struct{})
	)
	loader, st := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/dashboard/products" {
			io.WriteString(w, productsJSON(products))
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/dashboard/products/")
		id, _ := strconv.Atoi(strings.TrimSuffix(rest, "/scripts"))

		mu.Lock()
		calls++
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		if calls == products {
			close(release)
		}
		mu.Unlock()

		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}

		mu.Lock()
		inFlight--
		mu.Unlock()
		io.WriteString(w, scriptsJSON(id, counts[id]))
	})

	scripts, err := loader.LoadScripts(context.Background(), state.AllProducts)
	if err != nil {
		t.Fatalf("LoadScripts failed: %v", err)
	}

	mu.Lock()
	gotCalls, gotPeak := calls, peak
	mu.Unlock()
	if gotCalls != products {
		t.Errorf("script requests = %d, want %d", gotCalls, products)
	}
	if gotPeak != products {
		t.Errorf("peak concurrent requests = %d, want %d", gotPeak, products)
	}
	want := 0
	for _, n := range counts {
		want += n
	}
	if len(scripts) != want {
		t.Errorf("flattened %d scripts, want %d", len(scripts), want)
	}
	for _, s := range scripts {
		if s.ProductName != fmt.Sprintf("Product %d", s.ProductID) || s.ProductSKU != fmt.Sprintf("SKU-%d", s.ProductID) {
			t.Errorf("script %d tagged %q/%q", s.ID, s.ProductName, s.ProductSKU)
		}
	}
	if scripts[0].ProductID != 1 || scripts[len(scripts)-1].ProductID != 5 {
		t.Error("scripts should be flattened in product order")
	}
	if st.ScriptsFilter() != state.AllProducts || len(st.Scripts()) != want {
		t.Error("state not replaced with the flattened list")
	}
}

func TestLoadAllScriptsRefetchesUnfilteredProducts(t *testing.T) {
	var (
		mu           sync.Mutex
		productGets  int
		filteredGets int
		scriptGets   int
	)
	loader, st := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path == "/api/v1/dashboard/products" {
			if r.URL.Query().Get("category") != "" {
				filteredGets++
				io.WriteString(w, productsJSON(1))
				return
			}
			productGets++
			io.WriteString(w, productsJSON(3))
			return
		}
		scriptGets++
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/dashboard/products/")
		id, _ := strconv.Atoi(strings.TrimSuffix(rest, "/scripts"))
		io.WriteString(w, scriptsJSON(id, 2))
	})
	ctx := context.Background()

	if _, err := loader.LoadProducts(ctx, backend.ProductFilter{Category: "shoes"}); err != nil {
		t.Fatal(err)
	}
	scripts, err := loader.LoadScripts(ctx, state.AllProducts)
	if err != nil {
		t.Fatalf("LoadScripts failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if filteredGets != 1 || productGets != 1 {
		t.Errorf("product requests: filtered = %d, unfiltered = %d, want 1 and 1", filteredGets, productGets)
	}
	if scriptGets != 3 {
		t.Errorf("script requests = %d, want 3", scriptGets)
	}
	if len(scripts) != 6 {
		t.Errorf("merged %d scripts, want 6", len(scripts))
	}
	if n := len(st.Products()); n != 1 {
		t.Errorf("product cache = %d entries, want the filtered 1", n)
	}
}

func TestLoadAllScriptsToleratesPartialFailure(t *testing.T) {
	loader, _ := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/dashboard/products":
			io.WriteString(w, productsJSON(2))
		case "/api/v1/dashboard/products/1/scripts":
			io.WriteString(w, scriptsJSON(1, 2))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"detail":"boom"}`)
		}
	})

	scripts, err := loader.LoadAllScripts(context.Background())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(scripts) != 2 {
		t.Errorf("got %d scripts, want 2", len(scripts))
	}
}

func TestLoadAllScriptsFailsWhenEveryProductFails(t *testing.T) {
	loader, _ := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/dashboard/products" {
			io.WriteString(w, productsJSON(2))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := loader.LoadAllScripts(context.Background()); err == nil {
		t.Fatal("expected an error when every product fails")
	}
}

func TestLoadersReplaceCachesWholesale(t *testing.T) {
	round := 0
	loader, st := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/dashboard/products":
			round++
			io.WriteString(w, productsJSON(4-round))
		case "/api/v1/dashboard/products/1/scripts":
			io.WriteString(w, scriptsJSON(1, 3))
		}
	})
	ctx := context.Background()

	if _, err := loader.LoadProducts(ctx, backend.ProductFilter{}); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.LoadProducts(ctx, backend.ProductFilter{}); err != nil {
		t.Fatal(err)
	}
	if n := len(st.Products()); n != 2 {
		t.Errorf("products = %d after second load, want 2", n)
	}

	scripts, err := loader.LoadScripts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 3 || scripts[0].ProductName != "Product 1" {
		t.Errorf("scripts = %+v", scripts)
	}
	if st.ScriptsFilter() != 1 {
		t.Errorf("filter = %d", st.ScriptsFilter())
	}
	if err := loader.ReloadScripts(ctx); err != nil {
		t.Fatalf("ReloadScripts: %v", err)
	}
	if st.ScriptsFilter() != 1 || len(st.Scripts()) != 3 {
		t.Error("reload should keep the current filter")
	}
}

func TestNonArrayPayloadsRenderEmpty(t *testing.T) {
	loader, st := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/dashboard/products":
			io.WriteString(w, `{"products":{"unexpected":true}}`)
		case "/api/v1/dashboard/personas/script":
			io.WriteString(w, `{"personas":[]}`)
		case "/api/v1/dashboard/personas/voice":
			io.WriteString(w, `"none"`)
		case "/api/v1/dashboard/stats":
			io.WriteString(w, `{"products":{"total":0},"content":{}}`)
		}
	})

	if err := loader.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	r := NewRenderer(st, nil, nil)
	if grid := r.ProductGrid(); grid.Total != 0 || grid.Products == nil {
		t.Errorf("grid = %+v", grid)
	}
	picker := r.PersonaPicker(0)
	if picker.ScriptPersonas == nil || len(picker.ScriptPersonas) != 0 || len(picker.VoicePersonas) != 0 {
		t.Errorf("picker = %+v", picker)
	}
	if list := r.ScriptList(); list.Total != 0 || list.Scripts == nil {
		t.Errorf("script list = %+v", list)
	}
}
