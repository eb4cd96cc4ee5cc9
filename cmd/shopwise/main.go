// Package main is the shopwise storefront CLI: browse the catalog, filter
// and sort it, and manage the persisted cart, favorites, filters and theme.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"shopwise/config"
	"shopwise/internal/app"
	"shopwise/internal/catalog"
	"shopwise/internal/logging"
	"shopwise/internal/version"
)

const usageText = `Usage: shopwise [flags] <command> [args]

Commands:
  products [flags]        list products (persisted filters apply)
  product <id>            show one product
  categories              list categories
  cart ls|add|rm|inc|dec|set|clear
  fav ls|toggle|add|rm|clear
  filters show|set|reset
  theme [dark|light|toggle]
  metrics                 dump collected metrics

Flags:
  -version                print version information
`

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Dev, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, logger, app.Options{ThemeApply: applyTheme})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := run(ctx, application, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "products":
		return runProducts(ctx, a, args)
	case "product":
		return runProduct(ctx, a, args)
	case "categories":
		return runCategories(ctx, a)
	case "cart":
		return runCart(ctx, a, args)
	case "fav":
		return runFav(ctx, a, args)
	case "filters":
		return runFilters(ctx, a, args)
	case "theme":
		return runTheme(ctx, a, args)
	case "metrics":
		return a.Metrics.Dump(os.Stdout)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runProducts(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	category := fs.String("category", "", "override category filter")
	search := fs.String("search", "", "override search query")
	sortBy := fs.String("sort", "", "override sort: default|price-asc|price-desc|rating|name")
	minPrice := fs.Float64("min", -1, "override minimum price")
	maxPrice := fs.Float64("max", -1, "override maximum price")
	refresh := fs.Bool("refresh", false, "force a refetch, bypassing the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := a.Filters.Get()
	if *category != "" {
		f.Category = *category
	}
	if *search != "" {
		f.SearchQuery = *search
	}
	if *sortBy != "" {
		opt := catalog.SortOption(*sortBy)
		if !opt.Valid() {
			return fmt.Errorf("unknown sort option %q", *sortBy)
		}
		f.SortBy = opt
	}
	if *minPrice >= 0 {
		f.PriceRange.Min = *minPrice
	}
	if *maxPrice >= 0 {
		f.PriceRange.Max = *maxPrice
	}

	if *refresh {
		a.Catalog.RefreshProducts(ctx)
	}
	res, filtered := a.Catalog.FilteredProducts(ctx, f)
	if res.Err != "" {
		if res.HasData {
			fmt.Fprintf(os.Stderr, "warning: %s (showing cached data)\n", res.Err)
		} else {
			return fmt.Errorf("%s", res.Err)
		}
	}
	if !res.HasData {
		fmt.Println("no products available")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tRATING\tCATEGORY")
	for _, p := range filtered {
		marks := ""
		if a.Favorites.Contains(p.ID) {
			marks += "*"
		}
		if a.Cart.Contains(p.ID) {
			marks += "+"
		}
		fmt.Fprintf(w, "%d\t%s%s\t%.2f\t%.1f (%d)\t%s\n",
			p.ID, truncate(p.Title, 48), marks, p.Price, p.Rating.Rate, p.Rating.Count, p.Category)
	}
	w.Flush()
	fmt.Printf("%d of %d products\n", len(filtered), len(res.Data))
	return nil
}

func runProduct(ctx context.Context, a *app.App, args []string) error {
	id, err := argID(args, "product")
	if err != nil {
		return err
	}

	res := a.Catalog.Product(ctx, id)
	if !res.HasData {
		if res.Err != "" {
			return fmt.Errorf("%s", res.Err)
		}
		return fmt.Errorf("product %d is still loading", id)
	}
	if res.Err != "" {
		fmt.Fprintf(os.Stderr, "warning: %s (showing cached data)\n", res.Err)
	}

	p := res.Data
	fmt.Printf("#%d %s\n", p.ID, p.Title)
	fmt.Printf("price:    %.2f\n", p.Price)
	fmt.Printf("rating:   %.1f (%d reviews)\n", p.Rating.Rate, p.Rating.Count)
	fmt.Printf("category: %s\n", p.Category)
	fmt.Printf("image:    %s\n", p.Image)
	fmt.Printf("favorite: %v  in cart: %d\n", a.Favorites.Contains(p.ID), a.Cart.Quantity(p.ID))
	fmt.Println()
	fmt.Println(p.Description)
	return nil
}

func runCategories(ctx context.Context, a *app.App) error {
	res := a.Catalog.Categories(ctx)
	if !res.HasData {
		if res.Err != "" {
			return fmt.Errorf("%s", res.Err)
		}
		fmt.Println("no categories available")
		return nil
	}
	if res.Err != "" {
		fmt.Fprintf(os.Stderr, "warning: %s (showing cached data)\n", res.Err)
	}
	for _, c := range res.Data {
		fmt.Println(c)
	}
	return nil
}

func runCart(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	switch args[0] {
	case "ls":
		items := a.Cart.Items()
		if len(items) == 0 {
			fmt.Println("cart is empty")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
		for _, item := range items {
			fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.2f\n",
				item.Product.ID, truncate(item.Product.Title, 48), item.Quantity,
				item.Product.Price, item.Product.Price*float64(item.Quantity))
		}
		w.Flush()
		fmt.Printf("%d items, total %.2f\n", a.Cart.TotalItems(), a.Cart.TotalPrice())
		return nil
	case "add":
		id, err := argID(args[1:], "cart add")
		if err != nil {
			return err
		}
		qty := 1
		if len(args) > 2 {
			qty, err = strconv.Atoi(args[2])
			if err != nil || qty < 1 {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
		}
		res := a.Catalog.Product(ctx, id)
		if !res.HasData {
			if res.Err != "" {
				return fmt.Errorf("%s", res.Err)
			}
			return fmt.Errorf("product %d is still loading", id)
		}
		return a.Cart.Add(ctx, res.Data, qty)
	case "rm":
		id, err := argID(args[1:], "cart rm")
		if err != nil {
			return err
		}
		return a.Cart.Remove(ctx, id)
	case "inc":
		id, err := argID(args[1:], "cart inc")
		if err != nil {
			return err
		}
		return a.Cart.Increment(ctx, id)
	case "dec":
		id, err := argID(args[1:], "cart dec")
		if err != nil {
			return err
		}
		return a.Cart.Decrement(ctx, id)
	case "set":
		id, err := argID(args[1:], "cart set")
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return fmt.Errorf("cart set requires a quantity")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[2])
		}
		return a.Cart.SetQuantity(ctx, id, qty)
	case "clear":
		return a.Cart.Clear(ctx)
	default:
		return fmt.Errorf("unknown cart subcommand %q", args[0])
	}
}

func runFav(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	switch args[0] {
	case "ls":
		ids := a.Favorites.IDs()
		if len(ids) == 0 {
			fmt.Println("no favorites")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	case "toggle":
		id, err := argID(args[1:], "fav toggle")
		if err != nil {
			return err
		}
		return a.Favorites.Toggle(ctx, id)
	case "add":
		id, err := argID(args[1:], "fav add")
		if err != nil {
			return err
		}
		return a.Favorites.Add(ctx, id)
	case "rm":
		id, err := argID(args[1:], "fav rm")
		if err != nil {
			return err
		}
		return a.Favorites.Remove(ctx, id)
	case "clear":
		return a.Favorites.Clear(ctx)
	default:
		return fmt.Errorf("unknown fav subcommand %q", args[0])
	}
}

func runFilters(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "show":
		f := a.Filters.Get()
		fmt.Printf("category:  %s\n", f.Category)
		fmt.Printf("search:    %q\n", f.SearchQuery)
		fmt.Printf("sort:      %s\n", f.SortBy)
		fmt.Printf("price:     %.2f – %.2f\n", f.PriceRange.Min, f.PriceRange.Max)
		return nil
	case "set":
		fs := flag.NewFlagSet("filters set", flag.ContinueOnError)
		category := fs.String("category", "", "category filter (\"all\" disables)")
		search := fs.String("search", "", "search query")
		sortBy := fs.String("sort", "", "sort: default|price-asc|price-desc|rating|name")
		minPrice := fs.Float64("min", -1, "minimum price")
		maxPrice := fs.Float64("max", -1, "maximum price")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *category != "" {
			if err := a.Filters.SetCategory(ctx, *category); err != nil {
				return err
			}
		}
		if *search != "" {
			if err := a.Filters.SetSearchQuery(ctx, *search); err != nil {
				return err
			}
		}
		if *sortBy != "" {
			if err := a.Filters.SetSortBy(ctx, catalog.SortOption(*sortBy)); err != nil {
				return err
			}
		}
		if *minPrice >= 0 || *maxPrice >= 0 {
			f := a.Filters.Get()
			min, max := f.PriceRange.Min, f.PriceRange.Max
			if *minPrice >= 0 {
				min = *minPrice
			}
			if *maxPrice >= 0 {
				max = *maxPrice
			}
			if err := a.Filters.SetPriceRange(ctx, min, max); err != nil {
				return err
			}
		}
		return nil
	case "reset":
		return a.Filters.Reset(ctx)
	default:
		return fmt.Errorf("unknown filters subcommand %q", args[0])
	}
}

func runTheme(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		if a.Theme.Dark() {
			fmt.Println("dark")
		} else {
			fmt.Println("light")
		}
		return nil
	}
	switch args[0] {
	case "dark":
		return a.Theme.Set(ctx, true)
	case "light":
		return a.Theme.Set(ctx, false)
	case "toggle":
		return a.Theme.Toggle(ctx)
	default:
		return fmt.Errorf("unknown theme %q", args[0])
	}
}

// applyTheme is the presentation hook for theme changes. The CLI has no
// persistent chrome to restyle, so it only exports the choice for child
// processes and prompts.
func applyTheme(dark bool) {
	if dark {
		os.Setenv("SHOPWISE_THEME", "dark")
	} else {
		os.Setenv("SHOPWISE_THEME", "light")
	}
}

func argID(args []string, command string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s requires a product id", command)
	}
	id, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid product id %q", args[0])
	}
	return id, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
