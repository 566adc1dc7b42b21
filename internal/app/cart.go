package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"horse.fit/storefront/internal/cart"
	"horse.fit/storefront/internal/catalog"
	"horse.fit/storefront/internal/cli"
)

func runCart(args []string) int {
	if len(args) == 0 {
		printCartUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "show", "add", "remove", "update", "clear":
	default:
		fmt.Fprintf(os.Stderr, "Unknown cart action: %s\n\n", args[0])
		printCartUsage()
		return 2
	}

	fs := flag.NewFlagSet("cart "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	key := fs.String("key", "", "Storage key of the cart (defaults to CART_STORAGE_KEY)")
	asJSON := fs.Bool("json", false, "Print the cart as JSON")
	productJSON := fs.String("product", "", "Product JSON object (add)")
	productFile := fs.String("product-file", "", "Path to a product JSON file (add)")
	productID := fs.String("product-id", "", "Product id (remove, update)")
	variant := fs.String("variant", cart.DefaultVariant, "Variant id")
	quantity := fs.Int("quantity", 1, "Quantity (add, update)")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var rawProduct []byte
	switch action {
	case "add":
		raw, err := readProductFlag(*productJSON, *productFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		rawProduct = raw
	case "remove", "update":
		if strings.TrimSpace(*productID) == "" {
			fmt.Fprintf(os.Stderr, "cart %s requires --product-id\n", action)
			return 2
		}
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	kv, err := openStorage(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer kv.Close()

	cartKey := strings.TrimSpace(*key)
	if cartKey == "" {
		cartKey = cfg.CartStorageKey
	}
	store := cart.Open(ctx, kv, cart.Options{Key: cartKey, Logger: logger})

	switch action {
	case "add":
		product, err := catalog.ProductFromJSON(rawProduct, catalog.Options{BaseURL: cfg.CatalogURL()})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid product: %v\n", err)
			return 2
		}
		if err := store.AddItem(ctx, product, *variant, *quantity); err != nil {
			fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
			return 2
		}
	case "remove":
		store.RemoveItem(ctx, *productID, *variant)
	case "update":
		if err := store.UpdateQuantity(ctx, *productID, *variant, *quantity); err != nil {
			fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
			return 2
		}
	case "clear":
		store.Clear(ctx)
	}

	if err := printCart(store.Snapshot(), *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print cart: %v\n", err)
		return 1
	}
	return 0
}

func readProductFlag(inline, path string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	path = strings.TrimSpace(path)
	switch {
	case inline != "" && path != "":
		return nil, fmt.Errorf("use either --product or --product-file, not both")
	case inline != "":
		return []byte(inline), nil
	case path != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read product file: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("cart add requires --product or --product-file")
	}
}

func printCart(snapshot cart.Snapshot, asJSON bool) error {
	if asJSON {
		return printJSON(map[string]any{
			"key":        snapshot.Key,
			"lines":      snapshot.Lines,
			"subtotal":   snapshot.Totals.SubtotalDisplay(),
			"item_count": snapshot.Totals.ItemCount,
		})
	}

	rows := make([][]string, 0, len(snapshot.Lines)+1)
	for _, line := range snapshot.Lines {
		rows = append(rows, []string{
			line.ProductID,
			line.VariantID,
			truncateForTable(line.Title, 40),
			strconv.Itoa(line.Quantity),
			line.UnitPrice.StringFixed(2),
			line.Total().StringFixed(2),
		})
	}
	rows = append(rows, []string{"", "", "subtotal", strconv.Itoa(snapshot.Totals.ItemCount), "", snapshot.Totals.SubtotalDisplay()})
	return writeTable([]string{"PRODUCT", "VARIANT", "TITLE", "QTY", "UNIT", "TOTAL"}, rows)
}

func truncateForTable(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func printCartUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  storefront cart show [--key <key>] [--json]")
	fmt.Fprintln(os.Stderr, "  storefront cart add --product '<json>' [--variant <id>] [--quantity <n>]")
	fmt.Fprintln(os.Stderr, "  storefront cart remove --product-id <id> [--variant <id>]")
	fmt.Fprintln(os.Stderr, "  storefront cart update --product-id <id> [--variant <id>] --quantity <n>")
	fmt.Fprintln(os.Stderr, "  storefront cart clear")
}
