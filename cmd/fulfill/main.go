// Command fulfill processes one pending order: it decrements product stock
// per line item, marks the order completed, and prints a before/after stock
// table. It exits 0 when there is nothing to do and 1 on missing
// configuration or an unhandled failure.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/dacardenas/tenis-store/internal/config"
	"github.com/dacardenas/tenis-store/internal/database"
	"github.com/dacardenas/tenis-store/internal/fulfill"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	svc := fulfill.New(fulfill.NewSQLStore(db), log.Default())

	report, err := svc.Run(context.Background())
	if err != nil {
		log.Fatalf("Fulfillment run: %v", err)
	}

	if report.NoOp {
		fmt.Println("No pending orders; nothing to fulfill.")
		return
	}

	if report.Substitute {
		fmt.Printf("Order %d had no usable line items; processed substitute order %d instead.\n",
			report.OriginalID, report.OrderID)
	}
	fmt.Printf("Order %d fulfilled.\n", report.OrderID)

	for _, item := range report.Items {
		switch {
		case item.Skipped:
			fmt.Printf("  product %d x%d: skipped, product no longer exists\n", item.ProductID, item.Quantity)
		case item.Err != nil:
			fmt.Printf("  product %d x%d: decrement failed: %v\n", item.ProductID, item.Quantity, item.Err)
		default:
			fmt.Printf("  product %d x%d: stock decremented\n", item.ProductID, item.Quantity)
		}
	}

	if len(report.Changes) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT\tBEFORE\tAFTER")
		for _, c := range report.Changes {
			fmt.Fprintf(w, "%d\t%d\t%d\n", c.ProductID, c.Before, c.After)
		}
		w.Flush()
	}
}
