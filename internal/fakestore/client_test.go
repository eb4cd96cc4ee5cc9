package fakestore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/labstack/echo/v4"

	"shopwise/internal/catalog"
)

var fixtureProducts = []catalog.Product{
	{ID: 1, Title: "Backpack", Price: 109.95, Description: "fits laptops", Category: "men's clothing", Image: "https://example.test/1.png", Rating: catalog.Rating{Rate: 3.9, Count: 120}},
	{ID: 2, Title: "Monitor", Price: 599, Description: "ips display", Category: "electronics", Image: "https://example.test/2.png", Rating: catalog.Rating{Rate: 2.9, Count: 250}},
}

// newFixture starts a catalog API double and returns a client wired to it.
func newFixture(t *testing.T, register func(e *echo.Echo)) *Client {
	t.Helper()

	e := echo.New()
	e.HideBanner = true
	register(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
		Retries:   3,
		BaseDelay: time.Millisecond,
	}
	return NewWithHTTPClient(srv.Client(), cfg, nil, nil)
}

func TestProducts(t *testing.T) {
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products", func(c echo.Context) error {
			return c.JSON(http.StatusOK, fixtureProducts)
		})
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 || products[0].ID != 1 || products[1].Rating.Count != 250 {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestProductByID(t *testing.T) {
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products/:id", func(c echo.Context) error {
			if c.Param("id") != "1" {
				return c.JSON(http.StatusNotFound, map[string]string{})
			}
			return c.JSON(http.StatusOK, fixtureProducts[0])
		})
	})

	product, err := client.Product(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Title != "Backpack" {
		t.Fatalf("unexpected product: %+v", product)
	}
}

func TestCategories(t *testing.T) {
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products/categories", func(c echo.Context) error {
			return c.JSON(http.StatusOK, []string{"electronics", "jewelery"})
		})
	})

	categories, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 2 || categories[0] != "electronics" {
		t.Fatalf("unexpected categories: %v", categories)
	}
}

func TestProductsByCategoryEscapesName(t *testing.T) {
	var gotName atomic.Value
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products/category/:name", func(c echo.Context) error {
			name, _ := url.PathUnescape(c.Param("name"))
			gotName.Store(name)
			return c.JSON(http.StatusOK, []catalog.Product{fixtureProducts[0]})
		})
	})

	products, err := client.ProductsByCategory(context.Background(), "men's clothing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("unexpected products: %+v", products)
	}
	if got := gotName.Load(); got != "men's clothing" {
		t.Fatalf("category name arrived as %q", got)
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products", func(c echo.Context) error {
			if calls.Add(1) <= 2 {
				return c.NoContent(http.StatusInternalServerError)
			}
			return c.JSON(http.StatusOK, fixtureProducts)
		})
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("unexpected products: %+v", products)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", n)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products", func(c echo.Context) error {
			calls.Add(1)
			return c.NoContent(http.StatusServiceUnavailable)
		})
	})

	_, err := client.Products(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsServerError || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected classification: %+v", apiErr)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 attempts before giving up, got %d", n)
	}
}

func TestNotFoundFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products/:id", func(c echo.Context) error {
			calls.Add(1)
			return c.NoContent(http.StatusNotFound)
		})
	})

	_, err := client.Product(context.Background(), 99)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsNotFound || apiErr.Message != msgNotFound {
		t.Fatalf("unexpected classification: %+v", apiErr)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("4xx must not consume retries, got %d attempts", n)
	}
}

func TestBadRequestFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products", func(c echo.Context) error {
			calls.Add(1)
			return c.NoContent(http.StatusBadRequest)
		})
	})

	_, err := client.Products(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Transient() {
		t.Fatalf("400 must be non-transient: %+v", apiErr)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestBrotliResponse(t *testing.T) {
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products", func(c echo.Context) error {
			payload, err := json.Marshal(fixtureProducts)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			if _, err := bw.Write(payload); err != nil {
				return err
			}
			if err := bw.Close(); err != nil {
				return err
			}
			c.Response().Header().Set("Content-Encoding", "br")
			return c.Blob(http.StatusOK, "application/json", buf.Bytes())
		})
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("brotli body not decoded: %+v", products)
	}
}

func TestGzipResponse(t *testing.T) {
	client := newFixture(t, func(e *echo.Echo) {
		e.GET("/products", func(c echo.Context) error {
			payload, err := json.Marshal(fixtureProducts)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			gw := gzip.NewWriter(&buf)
			if _, err := gw.Write(payload); err != nil {
				return err
			}
			if err := gw.Close(); err != nil {
				return err
			}
			c.Response().Header().Set("Content-Encoding", "gzip")
			return c.Blob(http.StatusOK, "application/json", buf.Bytes())
		})
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("gzip body not decoded: %+v", products)
	}
}

func TestTimeoutClassification(t *testing.T) {
	e := echo.New()
	e.HideBanner = true
	e.GET("/products", func(c echo.Context) error {
		time.Sleep(500 * time.Millisecond)
		return c.JSON(http.StatusOK, fixtureProducts)
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	httpClient := &http.Client{Timeout: 30 * time.Millisecond}
	client := NewWithHTTPClient(httpClient, Config{
		BaseURL:   srv.URL,
		Retries:   1,
		BaseDelay: time.Millisecond,
	}, nil, nil)

	_, err := client.Products(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsTimeout {
		t.Fatalf("expected timeout classification, got %+v", apiErr)
	}
	if apiErr.Message != msgTimeout {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens here anymore

	client := NewWithHTTPClient(&http.Client{Timeout: time.Second}, Config{
		BaseURL:   url,
		Retries:   1,
		BaseDelay: time.Millisecond,
	}, nil, nil)

	_, err := client.Products(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsNetworkError {
		t.Fatalf("expected network classification, got %+v", apiErr)
	}
	if apiErr.Message != msgNetwork {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}
